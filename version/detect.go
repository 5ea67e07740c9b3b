package version

import (
	"context"
	"strconv"
	"strings"

	"github.com/heretere/hac/oerror"
	"github.com/sandertv/go-raknet"
)

// Detect pings the Bedrock server at the address passed and returns the protocol version and game version
// it reports.
func Detect(ctx context.Context, addr string) (int32, string, error) {
	pong, err := raknet.PingContext(ctx, addr)
	if err != nil {
		return 0, "", oerror.New("ping %v: %w", addr, err)
	}
	return ParsePong(pong)
}

// ParsePong parses the protocol and game version out of the unconnected pong data of a server, which is of
// the form "MCPE;motd;protocol;version;players;max players;...".
func ParsePong(data []byte) (int32, string, error) {
	fields := strings.Split(string(data), ";")
	if len(fields) < 4 || (fields[0] != "MCPE" && fields[0] != "MCEE") {
		return 0, "", oerror.New("unexpected pong data %q", data)
	}
	id, err := strconv.ParseInt(fields[2], 10, 32)
	if err != nil {
		return 0, "", oerror.New("invalid protocol in pong %q: %w", fields[2], err)
	}
	return int32(id), fields[3], nil
}
