package server

import (
	"net"
	"strings"
)

// isInWhiteList проверяет IPv4 адрес по списку точных адресов и префиксов вида "10.0.*".
// Звёздочка допускается только в конце шаблона.
func isInWhiteList(ip string, whiteList []string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.To4() == nil {
		return false
	}

	for _, pattern := range whiteList {
		star := strings.Index(pattern, "*")
		switch {
		case star < 0:
			if pattern == ip {
				return true
			}
		case star == len(pattern)-1:
			if strings.HasPrefix(ip, pattern[:star]) {
				return true
			}
		}
	}
	return false
}
