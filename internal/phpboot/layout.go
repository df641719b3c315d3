package phpboot

import "path/filepath"

// ExecutablePath returns where the php executable lives inside root for a platform.
//
// Windows builds put php.exe directly in bin/php. Unix builds are a prefix
// install under bin/php7.
func ExecutablePath(root, platformID string) string {
	if isWindows(platformID) {
		return filepath.Join(root, "bin", "php", "php.exe")
	}
	return filepath.Join(root, "bin", "php7", "bin", "php")
}
