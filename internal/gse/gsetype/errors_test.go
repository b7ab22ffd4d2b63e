package gsetype_test

import (
	"testing"

	"github.com/dvbgse/gogse/internal/gse/gsetype"
	"github.com/stretchr/testify/assert"
)

func TestRecoverable(t *testing.T) {
	recoverable := []error{
		gsetype.ErrCRC,
		gsetype.ErrTotalLength,
		gsetype.ErrUnknownMandatoryHeader,
		gsetype.ErrNoLabelSaved,
		gsetype.ErrLabelBroadcastSaved,
		gsetype.ErrLabelReUseSaved,
	}
	for _, err := range recoverable {
		assert.True(t, gsetype.Recoverable(err), "%v should be recoverable", err)
	}

	unrecoverable := []error{
		gsetype.ErrSizeBuffer,
		gsetype.ErrInvalidLabel,
		gsetype.ErrSizePduBuffer,
		gsetype.ErrGseLength,
	}
	for _, err := range unrecoverable {
		assert.False(t, gsetype.Recoverable(err), "%v should not be recoverable", err)
	}
}
