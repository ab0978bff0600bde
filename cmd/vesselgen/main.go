// Command vesselgen builds printable vascular tree models from parameter
// files.
package main

func main() {
	Execute()
}
