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

package utils

import (
	"sort"
	"strings"
)

func ContainsString(slice []string, s string) bool {
	for _, item := range slice {
		if item == s {
			return true
		}
	}
	return false
}

// SortedCopy returns a sorted copy, the input is left untouched.
func SortedCopy(src []string) []string {
	dst := make([]string, len(src))
	copy(dst, src)
	sort.Strings(dst)
	return dst
}

// SameMembers compares two sets ignoring order, duplicates count.
func SameMembers(src, dst []string) bool {
	if len(src) != len(dst) {
		return false
	}
	a, b := SortedCopy(src), SortedCopy(dst)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func ContainsAny(slice []string, candidates []string) bool {
	for _, c := range candidates {
		if ContainsString(slice, c) {
			return true
		}
	}
	return false
}

// DevicePath turns "sdb" or "/dev/sdb" into "/dev/sdb".
func DevicePath(name string) string {
	if strings.HasPrefix(name, "/dev/") {
		return name
	}
	return "/dev/" + name
}
