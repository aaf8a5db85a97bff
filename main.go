// SPDX-License-Identifier: MPL-2.0

package main

import cmd "refiner-cli/cmd/refiner"

func main() {
	cmd.Execute()
}
