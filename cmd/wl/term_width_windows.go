//go:build windows

package main

import "os"

// terminalWidth only honors $COLUMNS on windows.
func terminalWidth(*os.File) int { return columnsEnv() }
