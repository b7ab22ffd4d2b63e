package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dvbgse/gogse/internal/gse/decap"
	"github.com/dvbgse/gogse/internal/gse/encap"
	"github.com/dvbgse/gogse/internal/gse/gsetype"
	"github.com/dvbgse/gogse/internal/gse/reassembly"
	"github.com/dvbgse/gogse/internal/logger"
	"github.com/dvbgse/gogse/internal/telemetry"
	"github.com/spf13/cobra"
)

var (
	roundtripInput        string
	roundtripProtocolType uint32
	roundtripLabel        string
	roundtripBufferSize   int
	roundtripReuse        bool
	roundtripReuseMax     int
	roundtripRegistry     string
)

var roundtripCmd = &cobra.Command{
	Use:   "roundtrip",
	Short: "Encapsulate then decapsulate a PDU and verify the result matches",
	Long: `A self-test helper: encapsulates the input PDU (fragmenting if it
does not fit in --buffer-size), feeds the resulting packet stream straight
back through a Decapsulator, and reports whether the recovered PDU and
metadata match the original. Exits non-zero on mismatch.`,
	RunE: runRoundtrip,
}

func init() {
	roundtripCmd.Flags().StringVar(&roundtripInput, "input", "-", "Path to the PDU to round-trip (\"-\" for stdin)")
	roundtripCmd.Flags().Uint32Var(&roundtripProtocolType, "protocol-type", 0x0800, "Protocol type of the PDU")
	roundtripCmd.Flags().StringVar(&roundtripLabel, "label", "", "Destination label: hex-encoded 3 or 6 bytes, or \"broadcast\" (required)")
	roundtripCmd.Flags().IntVar(&roundtripBufferSize, "buffer-size", 4096, "Maximum bytes per emitted GSE packet")
	roundtripCmd.Flags().BoolVar(&roundtripReuse, "reuse", false, "Enable label-reuse compression")
	roundtripCmd.Flags().IntVar(&roundtripReuseMax, "reuse-max", 0, "Maximum consecutive reused labels before re-transmitting in full")
	roundtripCmd.Flags().StringVar(&roundtripRegistry, "registry", "none", "Mandatory extension registry: \"none\" or \"rcs2\"")
	_ = roundtripCmd.MarkFlagRequired("label")
}

func runRoundtrip(cmd *cobra.Command, args []string) error {
	pdu, err := readInput(roundtripInput)
	if err != nil {
		return fmt.Errorf("reading PDU: %w", err)
	}
	if roundtripProtocolType > 0xFFFF {
		return fmt.Errorf("--protocol-type %#x exceeds 16 bits", roundtripProtocolType)
	}
	label, err := parseLabel(roundtripLabel)
	if err != nil {
		return err
	}
	registry, err := parseRegistry(roundtripRegistry)
	if err != nil {
		return err
	}

	encOpts := []encap.Option{encap.WithRegistry(registry)}
	if roundtripReuse {
		encOpts = append(encOpts, encap.WithLabelReuse(roundtripReuseMax))
	}
	if gseMetrics != nil {
		encOpts = append(encOpts, encap.WithMetrics(gseMetrics))
	}
	encapsulator := encap.NewEncapsulator(encOpts...)

	meta := gsetype.EncapMetadata{ProtocolType: uint16(roundtripProtocolType), Label: label}
	buf := make([]byte, roundtripBufferSize)

	_, span := telemetry.StartEncapSpan(context.Background(), "roundtrip", runID+":"+roundtripInput,
		telemetry.ProtocolType(meta.ProtocolType), telemetry.PDULen(len(pdu)))
	defer span.End()

	var wire bytes.Buffer
	n, packets, err := encapPDU(encapsulator, &wire, buf, pdu, meta)
	if err != nil {
		return fmt.Errorf("encapsulating: %w", err)
	}
	logger.Info("encapsulated pdu", "pdu_bytes", len(pdu), "wire_bytes", n, "packets", packets)

	mem := reassembly.NewMemory(256, roundtripBufferSize+len(pdu))
	decOpts := []decap.Option{decap.WithRegistry(registry)}
	if gseMetrics != nil {
		decOpts = append(decOpts, decap.WithMetrics(gseMetrics))
	}
	decapsulator := decap.NewDecapsulator(mem, decOpts...)
	if gseMetrics != nil {
		gseMetrics.SetActiveStreams(2)
		defer gseMetrics.SetActiveStreams(0)
	}

	got, gotMeta, err := decapOne(decapsulator, wire.Bytes())
	if err != nil {
		return fmt.Errorf("decapsulating: %w", err)
	}

	if !bytes.Equal(got, pdu) {
		return fmt.Errorf("round trip mismatch: pdu bytes differ (got %d bytes, want %d)", len(got), len(pdu))
	}
	if gotMeta.ProtocolType != uint16(roundtripProtocolType) {
		return fmt.Errorf("round trip mismatch: protocol type %#x, want %#x", gotMeta.ProtocolType, roundtripProtocolType)
	}
	if !label.IsBroadcast() && !gotMeta.Label.Equal(label) {
		return fmt.Errorf("round trip mismatch: label %v, want %v", gotMeta.Label, label)
	}

	fmt.Printf("OK: %d byte PDU recovered across %d packet(s)\n", len(got), packets)
	return nil
}

// decapOne drains buffer until exactly one CompletedPkt is recovered.
func decapOne(decapsulator *decap.Decapsulator, buffer []byte) ([]byte, gsetype.DecapMetadata, error) {
	offset := 0
	for offset < len(buffer) {
		status, n, err := decapsulator.Decap(buffer[offset:])
		if err != nil {
			return nil, gsetype.DecapMetadata{}, err
		}
		offset += n
		if status.Kind == decap.CompletedPkt {
			return status.PDU, status.Meta, nil
		}
	}
	return nil, gsetype.DecapMetadata{}, errors.New("roundtrip: no completed packet recovered from encapsulated stream")
}
