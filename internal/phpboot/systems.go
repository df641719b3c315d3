package phpboot

import "runtime"

// Host is the os and architecture phpboot is running on.
type Host struct {
	OS   string
	Arch string
}

// CurrentHost is the machine phpboot is running on.
var CurrentHost = Host{OS: runtime.GOOS, Arch: runtime.GOARCH}

// artifactArch is the architecture prebuilt artifacts are built for.
const artifactArch = "amd64"

// Emulated reports whether the prebuilt artifact for platformID would run
// on h under x86_64 emulation.
func (h Host) Emulated(platformID string) bool {
	_, ok := artifactPlatforms[platformID]
	return ok && platformID == h.OS && h.Arch != artifactArch
}

// artifactPlatforms maps platform ids to the platform part of prebuilt artifact names.
// Windows builds ship as zip archives with a different layout and aren't offered.
var artifactPlatforms = map[string]string{
	"darwin": "MacOS-x86_64",
	"linux":  "Linux-x86_64",
}

// KnownPlatforms are the platform ids phpboot understands, supported or not.
var KnownPlatforms = []string{"darwin", "linux", "windows", "win32"}

// ArtifactPlatform returns the artifact platform tag for a platform id such as
// "linux" or "darwin". Anything without a prebuilt artifact returns an
// *UnsupportedPlatformError.
func ArtifactPlatform(platformID string) (string, error) {
	tag, ok := artifactPlatforms[platformID]
	if !ok {
		return "", &UnsupportedPlatformError{Platform: platformID}
	}
	return tag, nil
}

func isWindows(platformID string) bool {
	return platformID == "windows" || platformID == "win32"
}
