package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/resonance-tools/combatmeter/internal/queue"
)

// serverSignature is the tail of the service id followed by the first stub
// byte, as seen in the first notify a game server sends.
var serverSignature = []byte{0x00, 0x63, 0x33, 0x53, 0x42, 0x00}

// helloPrefix is the number of bytes ahead of the first frame in a server
// greeting segment.
const helloPrefix = 10

// Config selects which traffic a Source follows.
type Config struct {
	// ServerPort pins the game server's TCP port. Zero means detect the
	// server from its greeting.
	ServerPort   int
	MaxFrameSize int
}

// Stats describes one replay.
type Stats struct {
	Packets  int
	Segments int
	Frames   int
	Resyncs  int
}

// Source follows server-to-client game traffic in a packet capture and
// pushes one buffer per frame onto a queue.
type Source struct {
	cfg    Config
	out    *queue.Queue[[]byte]
	logger *slog.Logger

	server string
	asm    *Assembler
	stats  Stats
}

// NewSource creates a Source writing to out.
func NewSource(cfg Config, out *queue.Queue[[]byte], logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Source{
		cfg:    cfg,
		out:    out,
		logger: logger,
		asm:    NewAssembler(cfg.MaxFrameSize, logger),
	}
}

// ReplayFile replays the pcap file at path.
func (s *Source) ReplayFile(ctx context.Context, path string) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("opening capture: %w", err)
	}
	defer f.Close()
	return s.Replay(ctx, f)
}

// Replay reads a pcap stream until EOF or until ctx ends.
func (s *Source) Replay(ctx context.Context, r io.Reader) (Stats, error) {
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return s.stats, fmt.Errorf("reading pcap header: %w", err)
	}
	linkType := pr.LinkType()

	for {
		if err := ctx.Err(); err != nil {
			return s.stats, err
		}

		data, ci, err := pr.ReadPacketData()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return s.stats, fmt.Errorf("reading packet %d: %w", s.stats.Packets+1, err)
		}
		s.stats.Packets++

		packet := gopacket.NewPacket(data, linkType, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
		s.handlePacket(packet, ci)
	}

	s.stats.Resyncs = s.asm.Resyncs()
	s.logger.Info("Capture replay finished",
		"packets", s.stats.Packets, "segments", s.stats.Segments,
		"frames", s.stats.Frames, "resyncs", s.stats.Resyncs)
	return s.stats, nil
}

func (s *Source) handlePacket(packet gopacket.Packet, ci gopacket.CaptureInfo) {
	tcp, ok := packet.Layer(layers.LayerTypeTCP).(*layers.TCP)
	if !ok || len(tcp.Payload) == 0 {
		return
	}
	network := packet.NetworkLayer()
	if network == nil {
		return
	}

	flow := network.NetworkFlow()
	src := fmt.Sprintf("%s:%d", flow.Src(), tcp.SrcPort)

	if !s.follow(src, tcp) {
		return
	}

	s.stats.Segments++
	frames := s.asm.Feed(tcp.Seq, tcp.Payload, ci.Timestamp)
	if len(frames) == 0 {
		return
	}
	s.stats.Frames += len(frames)
	s.out.Push(frames...)
}

// follow reports whether a segment from src belongs to the game server,
// switching servers when a new greeting is seen.
func (s *Source) follow(src string, tcp *layers.TCP) bool {
	if s.cfg.ServerPort != 0 {
		if int(tcp.SrcPort) != s.cfg.ServerPort {
			return false
		}
		if s.server != src {
			s.lockOn(src)
		}
		return true
	}

	if s.server == src {
		return true
	}
	if isServerHello(tcp.Payload) {
		s.lockOn(src)
	}
	// the greeting itself carries nothing the engine needs
	return false
}

func (s *Source) lockOn(src string) {
	s.logger.Info("Identified game server", "server", src, "previous", s.server)
	s.server = src
	s.asm.Reset()
}

// isServerHello reports whether payload looks like the first segment a game
// server sends: a short prefix followed by a notify for the game service.
func isServerHello(payload []byte) bool {
	if len(payload) <= helloPrefix || payload[4] != 0 {
		return false
	}
	data := payload[helloPrefix:]
	if len(data) < 4 {
		return false
	}
	size := binary.BigEndian.Uint32(data)
	if size < 4 || uint64(size)-4 > uint64(len(data)-4) {
		return false
	}
	body := data[4 : 4+size-4]
	return len(body) > 5+len(serverSignature) && bytes.Equal(body[5:5+len(serverSignature)], serverSignature)
}
