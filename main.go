// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/Spanfile/Modtorio-sub000/cmd/modtorio"

func main() {
	cmd.Execute()
}
