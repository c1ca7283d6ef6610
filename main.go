// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/modinstall/modinstall/cmd/modinstall"

func main() {
	cmd.Execute()
}
