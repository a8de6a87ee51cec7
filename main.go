// SPDX-License-Identifier: MPL-2.0

package main

import cmd "refit/cmd/refit"

func main() {
	cmd.Execute()
}
