package main

import "github.com/apkforge/apk/cmd/apk/cmd"

func main() {
	cmd.Execute()
}
