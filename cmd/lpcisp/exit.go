package main

import "github.com/synthread/go-lpcisp/flash"

// exitCode maps the failing stage to the process exit status
func exitCode(err error) int {
	stage, ok := flash.StageOf(err)
	if !ok {
		return 1
	}

	switch stage {
	case flash.StageSync:
		return 2
	case flash.StageFlashInit:
		return 3
	case flash.StageProgram:
		return 4
	case flash.StageVerify:
		return 5
	case flash.StageGo:
		return 6
	}
	return 1
}
