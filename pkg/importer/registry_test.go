package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSnapshot struct{ version int }

func (s *fakeSnapshot) SerializableVersion() int { return s.version }
func (s *fakeSnapshot) SerializableType() string { return "fake_snapshot" }

func TestRegisterAndNewRoundTrip(t *testing.T) {
	Register("registry_test_type", func() Snapshot { return &fakeSnapshot{version: 1} })

	snap, err := New("registry_test_type")
	require.NoError(t, err)
	assert.Equal(t, "fake_snapshot", snap.SerializableType())
}

func TestNewUnknownTypeErrors(t *testing.T) {
	_, err := New("no_such_type_registered")
	assert.Error(t, err)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	Register("registry_test_dup", func() Snapshot { return &fakeSnapshot{} })
	assert.Panics(t, func() {
		Register("registry_test_dup", func() Snapshot { return &fakeSnapshot{} })
	})
}
