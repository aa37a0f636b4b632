package main

import "pipelinehealth/cmd"

func main() {
	cmd.Execute()
}
