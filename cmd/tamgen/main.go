package main

import "github.com/AdamKhaddaj/ScribbleRendering/internal/cmd"

func main() {
	cmd.Execute()
}
