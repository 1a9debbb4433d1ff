// Package pcap provides PCAP file reading and network packet feature extraction.
package pcap

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
	dsio "github.com/hed1ad/anomalyconsensus/pkg/io"
)

type packetSource interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

// Reader turns a capture file into a dataset with one row per packet.
// Both classic pcap and pcapng files are accepted.
type Reader struct {
	filename  string
	file      *os.File
	source    packetSource
	extractor *FeatureExtractor
}

// NewFileReader creates a reader for PCAP files.
func NewFileReader(filename string) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	source, err := openSource(file)
	if err != nil {
		file.Close()
		return nil, err
	}

	return &Reader{
		filename:  filename,
		file:      file,
		source:    source,
		extractor: NewFeatureExtractor(),
	}, nil
}

func openSource(file *os.File) (packetSource, error) {
	r, err := pcapgo.NewReader(file)
	if err == nil {
		return r, nil
	}
	if _, serr := file.Seek(0, io.SeekStart); serr != nil {
		return nil, serr
	}
	ng, ngErr := pcapgo.NewNgReader(file, pcapgo.DefaultNgReaderOptions)
	if ngErr != nil {
		return nil, errors.Join(err, ngErr)
	}
	return ng, nil
}

// Source returns the file name.
func (r *Reader) Source() string {
	return r.filename
}

// Load decodes every packet into a feature row named after FeatureNames.
func (r *Reader) Load(ctx context.Context) (*dataset.Dataset, error) {
	if r.source == nil {
		return nil, errors.New("reader not initialized")
	}

	var data [][]float64
	packetSource := gopacket.NewPacketSource(r.source, r.source.LinkType())

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		packet, err := packetSource.NextPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if features := r.extractor.Extract(packet); features != nil {
			data = append(data, features)
		}
	}

	return dsio.FromVectors(r.extractor.FeatureNames(), data)
}

// Close releases resources.
func (r *Reader) Close() error {
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}

// FeatureExtractor extracts numerical features from network packets.
type FeatureExtractor struct {
	lastTimestamp time.Time
}

var _ dsio.FeatureExtractor[gopacket.Packet] = (*FeatureExtractor)(nil)

// NewFeatureExtractor creates a new packet feature extractor.
func NewFeatureExtractor() *FeatureExtractor {
	return &FeatureExtractor{}
}

// Extract converts a packet to a feature vector.
// Features: [packet_size, inter_arrival_time, protocol, src_port, dst_port,
//            tcp_flags, ip_ttl, payload_size]
func (e *FeatureExtractor) Extract(packet gopacket.Packet) []float64 {
	features := make([]float64, 8)

	// Packet size
	features[0] = float64(len(packet.Data()))

	// Inter-arrival time
	metadata := packet.Metadata()
	if metadata != nil && !metadata.Timestamp.IsZero() {
		if !e.lastTimestamp.IsZero() {
			features[1] = metadata.Timestamp.Sub(e.lastTimestamp).Seconds()
		}
		e.lastTimestamp = metadata.Timestamp
	}

	switch {
	case packet.Layer(layers.LayerTypeTCP) != nil:
		tcp := packet.Layer(layers.LayerTypeTCP).(*layers.TCP)
		features[2] = float64(layers.IPProtocolTCP)
		features[3] = float64(tcp.SrcPort)
		features[4] = float64(tcp.DstPort)
		features[5] = encodeTCPFlags(tcp)
	case packet.Layer(layers.LayerTypeUDP) != nil:
		udp := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		features[2] = float64(layers.IPProtocolUDP)
		features[3] = float64(udp.SrcPort)
		features[4] = float64(udp.DstPort)
	case packet.Layer(layers.LayerTypeICMPv4) != nil:
		features[2] = float64(layers.IPProtocolICMPv4)
	}

	if ipLayer := packet.Layer(layers.LayerTypeIPv4); ipLayer != nil {
		features[6] = float64(ipLayer.(*layers.IPv4).TTL)
	} else if ip6Layer := packet.Layer(layers.LayerTypeIPv6); ip6Layer != nil {
		features[6] = float64(ip6Layer.(*layers.IPv6).HopLimit)
	}

	if appLayer := packet.ApplicationLayer(); appLayer != nil {
		features[7] = float64(len(appLayer.Payload()))
	}

	return features
}

// FeatureNames returns the names of extracted features.
func (e *FeatureExtractor) FeatureNames() []string {
	return []string{
		"packet_size",
		"inter_arrival_time",
		"protocol",
		"src_port",
		"dst_port",
		"tcp_flags",
		"ip_ttl",
		"payload_size",
	}
}

// encodeTCPFlags converts TCP flags to a numeric value.
func encodeTCPFlags(tcp *layers.TCP) float64 {
	var flags float64
	if tcp.SYN {
		flags += 1
	}
	if tcp.ACK {
		flags += 2
	}
	if tcp.FIN {
		flags += 4
	}
	if tcp.RST {
		flags += 8
	}
	if tcp.PSH {
		flags += 16
	}
	if tcp.URG {
		flags += 32
	}
	return flags
}
