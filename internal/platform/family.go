package platform

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// OSRelease contains parsed values from /etc/os-release.
type OSRelease struct {
	ID        string   // Canonical distro identifier (e.g., "ubuntu", "fedora")
	IDLike    []string // Parent/similar distros (e.g., ["debian"] for Ubuntu)
	VersionID string   // Version number (e.g., "22.04")
}

// distroToFamily maps distro IDs to the packaging family that decides the
// libsasl2 development package name.
var distroToFamily = map[string]string{
	"debian": "debian", "ubuntu": "debian", "linuxmint": "debian",
	"pop": "debian", "elementary": "debian", "zorin": "debian",
	"fedora": "rhel", "rhel": "rhel", "centos": "rhel",
	"rocky": "rhel", "almalinux": "rhel", "ol": "rhel",
	"arch": "arch", "manjaro": "arch", "endeavouros": "arch",
	"alpine":              "alpine",
	"opensuse":            "suse",
	"opensuse-leap":       "suse",
	"opensuse-tumbleweed": "suse",
	"sles":                "suse",
}

// devPackages maps a packaging family to the package that ships
// sasl/sasl.h and the libsasl2 link library.
var devPackages = map[string]string{
	"debian": "libsasl2-dev",
	"rhel":   "cyrus-sasl-devel",
	"suse":   "cyrus-sasl-devel",
	"arch":   "libsasl",
	"alpine": "cyrus-sasl-dev",
}

// ParseOSRelease parses the /etc/os-release file format.
func ParseOSRelease(path string) (*OSRelease, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	release := &OSRelease{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		value = strings.Trim(value, `"'`)

		switch key {
		case "ID":
			release.ID = value
		case "ID_LIKE":
			release.IDLike = strings.Fields(value)
		case "VERSION_ID":
			release.VersionID = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return release, nil
}

// MapDistroToFamily maps a distro ID to its packaging family.
// Falls back to the ID_LIKE chain if ID is not directly recognized.
func MapDistroToFamily(id string, idLike []string) (string, error) {
	if family, ok := distroToFamily[id]; ok {
		return family, nil
	}
	for _, like := range idLike {
		if family, ok := distroToFamily[like]; ok {
			return family, nil
		}
	}
	return "", fmt.Errorf("unknown distro: %s", id)
}

// DetectDistroFamily returns the packaging family of the host reading
// osReleasePath. Returns "" and nil when the file does not exist.
func DetectDistroFamily(osReleasePath string) (string, error) {
	osRelease, err := ParseOSRelease(osReleasePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return MapDistroToFamily(osRelease.ID, osRelease.IDLike)
}

// DevPackageHint returns the remediation hint naming the development
// package to install. distroFamily may be empty when detection failed, in
// which case the common names are listed.
func DevPackageHint(f Family, distroFamily string) string {
	if f == Darwin {
		return "Have you installed libsasl2? With Homebrew, try: brew install cyrus-sasl"
	}
	if f == Linux {
		if pkg, ok := devPackages[distroFamily]; ok {
			return fmt.Sprintf("Have you installed the libsasl2 development package? On this system, try %s.", pkg)
		}
	}
	return "Have you installed the libsasl2 development package for your platform? " +
		"On Debian-based systems, try libsasl2-dev. On RHEL-based systems, try cyrus-sasl-devel. " +
		"On macOS with Homebrew, try cyrus-sasl."
}
