/*
   Copyright @ 2021 bocloud <fushaosong@beyondcent.com>.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package main

import (
	"os"

	"github.com/carina-io/mdlvm/cmd/mdlvm/run"
	"github.com/carina-io/mdlvm/utils/log"
)

var gitCommitID = "dev"

func main() {
	printWelcome()
	run.Execute()
}

func printWelcome() {
	if gitCommitID == "" {
		gitCommitID = "dev"
	}
	hostname, _ := os.Hostname()
	log.Debug("-------- Welcome to use mdlvm --------")
	log.Debugf("Git Commit ID : %s", gitCommitID)
	log.Debugf("host name : %s", hostname)
	log.Debug("--------------------------------------")
}
