// SPDX-License-Identifier: MIT

// Command lorainit estimates calibration gradients, searches step sizes and
// initializes low-rank adapters over a JSON weight file.
package main

func main() {
	Execute()
}
