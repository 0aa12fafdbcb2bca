package scanning

import "strings"

// classifyRule assigns a service label when it matches. Rules are evaluated
// in order and the first match wins.
type classifyRule struct {
	name  string
	match func(port uint16, banner string) bool
}

func bannerContains(substr string) func(uint16, string) bool {
	return func(_ uint16, banner string) bool {
		return strings.Contains(banner, substr)
	}
}

var wellKnownServices = map[uint16]string{
	21:   "FTP",
	22:   "SSH",
	23:   "Telnet",
	25:   "SMTP",
	53:   "DNS",
	80:   "HTTP",
	110:  "POP3",
	143:  "IMAP",
	443:  "HTTPS",
	3306: "MySQL",
	3389: "RDP",
	5900: "VNC",
	8080: "HTTP-Proxy",
}

// Banner evidence outranks the port number.
var classifyRules = []classifyRule{
	{name: "SSH", match: bannerContains("ssh")},
	{name: "HTTP", match: bannerContains("http")},
	{name: "SMTP", match: bannerContains("smtp")},
}

// ClassifyService returns a service label for an open port, or "" when
// nothing matched.
func ClassifyService(port uint16, banner string) string {
	lower := strings.ToLower(banner)
	for _, rule := range classifyRules {
		if rule.match(port, lower) {
			return rule.name
		}
	}
	return wellKnownServices[port]
}
