package call

import (
	"log"

	"github.com/pion/webrtc/v4"
)

// MediaOptions tunes the capture pipeline.
type MediaOptions struct {
	STUNServers []string

	// Capture caps. Higher resolutions increase VP8 encoding latency.
	MaxWidth  int
	MaxHeight int
}

// NewMediaSource returns the platform MediaSource: camera/mic capture via
// pion/mediadevices on Linux, receive-only elsewhere.
func NewMediaSource(opts MediaOptions) MediaSource {
	return &platformSource{opts: opts}
}

type platformSource struct {
	opts MediaOptions
}

func (s *platformSource) NewPeerConnection() (PeerConn, LocalMedia, error) {
	return initMediaPC(s.opts)
}

func iceServers(urls []string) []webrtc.ICEServer {
	if len(urls) == 0 {
		urls = []string{"stun:stun.l.google.com:19302"}
	}
	return []webrtc.ICEServer{{URLs: urls}}
}

// addRecvOnlyTransceivers adds recvonly transceivers for video and audio so
// CreateOffer/CreateAnswer always produces valid m-lines with ICE credentials.
func addRecvOnlyTransceivers(pc *webrtc.PeerConnection) {
	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		log.Printf("CALL: AddTransceiver(video) error: %v", err)
	}
	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		log.Printf("CALL: AddTransceiver(audio) error: %v", err)
	}
}
