package main

import (
	"fmt"

	wharfallure "github.com/iver-wharf/wharf-allure"
)

func main() {
	version, err := wharfallure.GetVersion()
	if err != nil {
		fmt.Println("Failed to load version:", err)
	}
	execute(version)
}
