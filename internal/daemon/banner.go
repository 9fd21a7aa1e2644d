package daemon

import (
	"fmt"
	"io"
	"net"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// lanIP returns the address other machines on the network reach this host
// by. No packet is sent; dialing UDP only selects the outbound interface.
func lanIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "127.0.0.1"
	}
	return addr.IP.String()
}

// writeBanner prints the URLs a phone and a browser need, with a QR code of
// the network URL so the phone app can scan it.
func writeBanner(w io.Writer, port, ip string, aiConfigured bool) {
	network := fmt.Sprintf("http://%s", net.JoinHostPort(ip, port))
	rule := strings.Repeat("=", 60)

	fmt.Fprintf(w, "\n%s\n  Group Weaver daemon started\n%s\n\n", rule, rule)
	fmt.Fprintf(w, "  Local:     http://localhost:%s\n", port)
	fmt.Fprintf(w, "  Network:   %s\n", network)
	fmt.Fprintf(w, "  WebSocket: ws://%s/ws\n\n", net.JoinHostPort(ip, port))
	fmt.Fprintf(w, "  Scan with the Android app:\n\n%s\n", renderQR(network))
	if aiConfigured {
		fmt.Fprintln(w, "  AI configured and ready")
	} else {
		fmt.Fprintln(w, "  WARNING: AI not configured!")
		fmt.Fprintln(w, "  Set ANTHROPIC_API_KEY or [ai] api_key in config.toml")
	}
	fmt.Fprintf(w, "\n%s\n\n", rule)
}

// renderQR converts a string to a compact QR code using Unicode half-block
// characters. Two bitmap rows become one terminal line.
func renderQR(content string) string {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "  (QR generation failed: " + err.Error() + ")\n"
	}

	bitmap := qr.Bitmap()
	rows := len(bitmap)
	cols := 0
	if rows > 0 {
		cols = len(bitmap[0])
	}

	var sb strings.Builder
	for y := 0; y < rows; y += 2 {
		sb.WriteString("  ")
		for x := 0; x < cols; x++ {
			top := bitmap[y][x]
			bot := y+1 < rows && bitmap[y+1][x]
			switch {
			case top && bot:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bot:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}
