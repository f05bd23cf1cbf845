package device

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"

	"github.com/authkeeper/internal/domain"
)

// Fingerprint describes the client behind a request. It is best effort and
// used for session display only: identical user agents behind one NAT share
// a DeviceID.
type Fingerprint struct {
	IP         string
	UserAgent  string
	DeviceInfo domain.DeviceInfo
}

// FromRequest derives the fingerprint of r.
func FromRequest(r *http.Request) Fingerprint {
	ip := ClientIP(r)
	ua := r.UserAgent()
	return Fingerprint{
		IP:        ip,
		UserAgent: ua,
		DeviceInfo: domain.DeviceInfo{
			DeviceID:   deviceID(ua, ip),
			Browser:    browser(ua),
			OS:         operatingSystem(ua),
			DeviceType: deviceType(ua),
		},
	}
}

// ClientIP returns the originating client address, preferring the first
// X-Forwarded-For hop, then X-Real-Ip, then RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xr := strings.TrimSpace(r.Header.Get("X-Real-Ip")); xr != "" {
		return xr
	}
	return PeerIP(r)
}

// PeerIP returns the host of the transport peer. Unlike ClientIP it ignores
// forwarding headers, so callers cannot choose it.
func PeerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func deviceID(userAgent, ip string) string {
	sum := sha256.Sum256([]byte(userAgent + ip))
	return hex.EncodeToString(sum[:16])
}

// Order matters: Edge and Opera embed "Chrome", Chrome embeds "Safari".
func browser(ua string) string {
	switch {
	case strings.Contains(ua, "Edg/") || strings.Contains(ua, "Edge/"):
		return "Edge"
	case strings.Contains(ua, "OPR/") || strings.Contains(ua, "Opera"):
		return "Opera"
	case strings.Contains(ua, "Firefox/"):
		return "Firefox"
	case strings.Contains(ua, "Chrome/"):
		return "Chrome"
	case strings.Contains(ua, "Safari/"):
		return "Safari"
	default:
		return "Unknown"
	}
}

func operatingSystem(ua string) string {
	switch {
	case strings.Contains(ua, "Windows"):
		return "Windows"
	case strings.Contains(ua, "iPhone") || strings.Contains(ua, "iPad") || strings.Contains(ua, "iOS"):
		return "iOS"
	case strings.Contains(ua, "Mac OS X") || strings.Contains(ua, "Macintosh"):
		return "macOS"
	case strings.Contains(ua, "Android"):
		return "Android"
	case strings.Contains(ua, "Linux"):
		return "Linux"
	default:
		return "Unknown"
	}
}

func deviceType(ua string) string {
	switch {
	case strings.Contains(ua, "iPad") || strings.Contains(ua, "Tablet"):
		return "tablet"
	case strings.Contains(ua, "Mobile") || strings.Contains(ua, "Android") || strings.Contains(ua, "iPhone"):
		return "mobile"
	default:
		return "desktop"
	}
}
