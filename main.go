/*
	Copyright 2023 Markus Papenbrock
*/

package main

import "github.com/mpapenbr/schaatslog/cmd"

func main() {
	cmd.Execute()
}
