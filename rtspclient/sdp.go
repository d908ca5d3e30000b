package rtspclient

import (
	"github.com/djwackey/gitea/log"
	"github.com/pion/sdp/v3"
)

// logDescription parses a DESCRIBE body as SDP for diagnostics. The body is
// relayed verbatim either way; a parse failure only means the upstream sent
// something we cannot summarize.
func (c *RTSPClient) logDescription(body []byte) {
	desc := new(sdp.SessionDescription)
	if err := desc.Unmarshal(body); err != nil {
		log.Error(4, "describe body is not valid sdp: %v", err)
		return
	}

	log.Info("described \"%s\": %d media description(s).",
		desc.SessionName, len(desc.MediaDescriptions))
}
