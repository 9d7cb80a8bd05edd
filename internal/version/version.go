// ABOUTME: Build and product identification
// ABOUTME: Version is overridden at link time with -ldflags
package version

// Version is the release version, set with -ldflags "-X ...version.Version=x.y.z"
var Version = "dev"

const (
	// Product is the name advertised over mDNS and the remote API
	Product = "Audio Session"
	// Manufacturer identifies the vendor in device info
	Manufacturer = "Resonate"
)

// String renders a one-line version banner
func String() string {
	return Product + " " + Version
}
