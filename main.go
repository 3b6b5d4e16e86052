/*
Copyright © 2026 JACOB ARTHURS
*/
package main

import "github.com/jacobarthurs/pgguard/cmd"

func main() {
	cmd.Execute()
}
