package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvbgse/gogse/internal/gse/encap"
	"github.com/dvbgse/gogse/internal/gse/gsetype"
	"github.com/dvbgse/gogse/internal/logger"
	"github.com/dvbgse/gogse/internal/telemetry"
	"github.com/spf13/cobra"
)

var (
	encapInput        string
	encapOutput       string
	encapProtocolType uint32
	encapLabel        string
	encapBufferSize   int
	encapReuse        bool
	encapReuseMax     int
	encapRegistry     string
)

var encapCmd = &cobra.Command{
	Use:   "encap",
	Short: "Encapsulate a PDU into a GSE packet stream",
	Long: `Reads a single PDU and writes the GSE packet(s) that carry it,
fragmenting across First/Intermediate/End packets if the PDU does not fit
within --buffer-size.`,
	RunE: runEncap,
}

func init() {
	encapCmd.Flags().StringVar(&encapInput, "input", "-", "Path to the PDU to encapsulate (\"-\" for stdin)")
	encapCmd.Flags().StringVar(&encapOutput, "output", "-", "Path to write the GSE packet stream (\"-\" for stdout)")
	encapCmd.Flags().Uint32Var(&encapProtocolType, "protocol-type", 0x0800, "Protocol type of the PDU (e.g. 0x0800 for IPv4)")
	encapCmd.Flags().StringVar(&encapLabel, "label", "", "Destination label: hex-encoded 3 or 6 bytes, or \"broadcast\" (required)")
	encapCmd.Flags().IntVar(&encapBufferSize, "buffer-size", 4096, "Maximum bytes per emitted GSE packet")
	encapCmd.Flags().BoolVar(&encapReuse, "reuse", false, "Enable label-reuse compression")
	encapCmd.Flags().IntVar(&encapReuseMax, "reuse-max", 0, "Maximum consecutive reused labels before re-transmitting in full (0 = unlimited)")
	encapCmd.Flags().StringVar(&encapRegistry, "registry", "none", "Mandatory extension registry: \"none\" or \"rcs2\"")
	_ = encapCmd.MarkFlagRequired("label")
}

func runEncap(cmd *cobra.Command, args []string) error {
	pdu, err := readInput(encapInput)
	if err != nil {
		return fmt.Errorf("reading PDU: %w", err)
	}
	if encapProtocolType > 0xFFFF {
		return fmt.Errorf("--protocol-type %#x exceeds 16 bits", encapProtocolType)
	}
	label, err := parseLabel(encapLabel)
	if err != nil {
		return err
	}
	registry, err := parseRegistry(encapRegistry)
	if err != nil {
		return err
	}

	out, err := openOutput(encapOutput)
	if err != nil {
		return fmt.Errorf("opening output: %w", err)
	}
	defer out.Close()

	opts := []encap.Option{encap.WithRegistry(registry)}
	if encapReuse {
		opts = append(opts, encap.WithLabelReuse(encapReuseMax))
	}
	if gseMetrics != nil {
		opts = append(opts, encap.WithMetrics(gseMetrics))
	}
	encapsulator := encap.NewEncapsulator(opts...)
	if gseMetrics != nil {
		gseMetrics.SetActiveStreams(1)
		defer gseMetrics.SetActiveStreams(0)
	}

	meta := gsetype.EncapMetadata{ProtocolType: uint16(encapProtocolType), Label: label}
	buf := make([]byte, encapBufferSize)

	_, span := telemetry.StartEncapSpan(context.Background(), "cli", runID+":"+encapOutput,
		telemetry.ProtocolType(meta.ProtocolType), telemetry.PDULen(len(pdu)))
	defer span.End()

	n, packets, err := encapPDU(encapsulator, out, buf, pdu, meta)
	if err != nil {
		return fmt.Errorf("encapsulating: %w", err)
	}
	span.SetAttributes(telemetry.BytesWritten(n))
	logger.Info("encapsulated pdu", "pdu_bytes", len(pdu), "wire_bytes", n, "packets", packets)
	return nil
}

// encapPDU runs the Complete-or-fragment decision and fragmentation loop
// against encapsulator, writing every emitted packet to out, and returns
// the total bytes written and the packet count.
func encapPDU(encapsulator *encap.Encapsulator, out interface{ Write([]byte) (int, error) }, buf []byte, pdu []byte, meta gsetype.EncapMetadata) (totalBytes int, packets int, err error) {
	n, err := encapsulator.Encap(buf, pdu, meta)
	if err == nil {
		if _, werr := out.Write(buf[:n]); werr != nil {
			return 0, 0, werr
		}
		return n, 1, nil
	}
	if !errors.Is(err, gsetype.ErrSizeBuffer) && !errors.Is(err, gsetype.ErrPduLength) {
		return 0, 0, err
	}

	var ctx *gsetype.ContextFrag
	remaining := pdu
	for {
		status, ferr := encapsulator.EncapFrag(buf, remaining, meta, nil, ctx)
		if ferr != nil {
			return 0, 0, ferr
		}
		if _, werr := out.Write(buf[:status.N]); werr != nil {
			return 0, 0, werr
		}
		totalBytes += status.N
		packets++
		if status.Kind == encap.Complete {
			return totalBytes, packets, nil
		}
		sent := int(status.Context.BytesEmitted)
		remaining = pdu[sent:]
		c := status.Context
		ctx = &c
	}
}
