package main

import "github.com/MeKo-Tech/redliningmap/internal/cmd"

func main() {
	cmd.Execute()
}
