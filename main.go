// Command scam-intel-crawler collects scam contact and payment identifiers from the web.
package main

import "github.com/JakeFAU/scam-intel-crawler/cmd"

func main() {
	cmd.Execute()
}
