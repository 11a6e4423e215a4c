package main

import "banksampah/process/sanitize"

func main() {
	sanitize.Run()
}
