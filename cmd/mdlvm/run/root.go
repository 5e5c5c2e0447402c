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

package run

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/carina-io/mdlvm"
	"github.com/carina-io/mdlvm/utils/log"
)

var config struct {
	configPath string
	logFile    string
	logLevel   string
	listen     string
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "mdlvm",
		Version: mdlvm.Version,
		Short:   "Assemble md RAID arrays and the LVM volumes on top of them",
		Long: `mdlvm brings every configured md RAID array and its logical volume
to a ready state. Arrays are created, reassembled or left alone after
inspecting the disks, so running it again on a configured host changes
nothing.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Setup(log.Options{File: config.logFile, Level: config.logLevel})
		},
	}

	fs := cmd.PersistentFlags()
	fs.StringVar(&config.configPath, "config", mdlvm.DefaultConfigPath, "config file, or directory holding config.json")
	fs.StringVar(&config.logFile, "log-file", "", "rotate logs into this file in addition to stdout")
	fs.StringVar(&config.logLevel, "log-level", "info", "debug, info, warn or error")

	cmd.AddCommand(newRunCmd(), newServeCmd(), newNamesCmd())
	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
