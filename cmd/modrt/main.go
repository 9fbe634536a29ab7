// SPDX-License-Identifier: MPL-2.0

// Command modrt discovers, loads and supervises pluggable modules.
package main

func main() {
	Execute()
}
