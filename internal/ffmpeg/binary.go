// Package ffmpeg provides FFmpeg binary detection and process execution.
package ffmpeg

import (
	"fmt"
	"os"
	"os/exec"
)

// ffmpegEnvVar overrides binary detection when set.
const ffmpegEnvVar = "SNAPSTREAM_FFMPEG_BINARY"

// ResolveBinary locates the ffmpeg executable.
// Search order:
//  1. configuredPath (from config, if non-empty)
//  2. SNAPSTREAM_FFMPEG_BINARY environment variable
//  3. ./ffmpeg (current directory, useful for development)
//  4. ffmpeg on PATH (via exec.LookPath)
//
// Each candidate is verified to exist and be executable before being returned.
func ResolveBinary(configuredPath string) (string, error) {
	if configuredPath != "" {
		if isExecutable(configuredPath) {
			return configuredPath, nil
		}
		return "", fmt.Errorf("configured ffmpeg binary not executable: %s", configuredPath)
	}

	if envPath := os.Getenv(ffmpegEnvVar); envPath != "" {
		if isExecutable(envPath) {
			return envPath, nil
		}
	}

	if isExecutable("./ffmpeg") {
		return "./ffmpeg", nil
	}

	if path, err := exec.LookPath("ffmpeg"); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("ffmpeg binary not found")
}

// isExecutable checks if a file exists and is executable by the current user.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	return info.Mode()&0111 != 0
}
