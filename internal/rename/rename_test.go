package rename

import (
	"testing"

	"github.com/zisync/zisync/internal/classifier"
	"github.com/zisync/zisync/internal/model"
)

func metaUpdateLocalRemove(sha1 []byte) Candidate {
	return Candidate{
		Local: &model.File{SHA1: sha1},
		Decision: classifier.Decision{
			Action: classifier.ActionUpdate,
			Mask:   classifier.Mask(0), // local-remove, remote-remove, meta, phase bits 0
		},
	}
}

func dataInsert(sha1 []byte) Candidate {
	return Candidate{
		Remote: &model.File{SHA1: sha1},
		Decision: classifier.Decision{
			Action: classifier.ActionInsert,
			Mask:   classifier.Mask(0x41), // remote-normal-reg + data + insert
		},
	}
}

// metaUpdateRemoteRemove mirrors a pull: the local row is still live, the
// remote side has been tombstoned, and Local is the only row carrying the
// sha1 — metaUpdateLocalRemove's mirror image.
func metaUpdateRemoteRemove(sha1 []byte) Candidate {
	return Candidate{
		Local: &model.File{SHA1: sha1},
		Decision: classifier.Decision{
			Action: classifier.ActionUpdate,
			Mask:   classifier.Mask(0x04), // local-normal, remote-remove, meta, phase bits 0
		},
	}
}

// dataUpdateRemoteRemove is a local-held candidate whose destination path
// was previously tombstoned on the remote side — the symmetric "to" case
// isRenameTo now recognizes alongside the pre-existing local-remove one.
func dataUpdateRemoteRemove(sha1 []byte) Candidate {
	return Candidate{
		Local: &model.File{SHA1: sha1},
		Decision: classifier.Decision{
			Action: classifier.ActionUpdate,
			Mask:   classifier.Mask(0x44), // local-normal-reg, remote-remove, data
		},
	}
}

func TestManagerPairsMatchingSha1(t *testing.T) {
	m := NewManager()
	from := metaUpdateLocalRemove([]byte{1, 2, 3})
	to := dataInsert([]byte{1, 2, 3})

	if !m.Add(from) {
		t.Fatalf("expected rename-from candidate to be consumed")
	}
	if !m.Add(to) {
		t.Fatalf("expected rename-to candidate to be consumed")
	}

	pairs, residualFroms, residualToes := m.Drain()
	if len(pairs) != 1 {
		t.Fatalf("expected exactly one paired rename, got %d", len(pairs))
	}
	if len(residualFroms) != 0 || len(residualToes) != 0 {
		t.Fatalf("expected no residuals once paired")
	}
}

func TestManagerResidualWhenUnmatched(t *testing.T) {
	m := NewManager()
	m.Add(metaUpdateLocalRemove([]byte{9, 9}))

	pairs, residualFroms, residualToes := m.Drain()
	if len(pairs) != 0 {
		t.Fatalf("expected no pairs for a lone from-candidate")
	}
	if len(residualFroms) != 1 || len(residualToes) != 0 {
		t.Fatalf("expected the lone candidate to drain as a residual from")
	}
}

func TestManagerIgnoresUnrelatedCandidate(t *testing.T) {
	m := NewManager()
	plain := Candidate{Decision: classifier.Decision{Action: classifier.ActionSkip}}
	if m.Add(plain) {
		t.Fatalf("a skip-action candidate should not be consumed by rename matching")
	}
}

// TestManagerPairsPullDirectionRename exercises the symmetric pull-side of
// isRenameFrom/isRenameTo: the "from" half has Local set and Remote nil
// (remote-removed, local-normal), and the "to" half has Local set and
// Remote nil too (local-normal, remote-removed, data) — neither candidate
// ever has Local == nil, so the old IsLocalRemove-only predicates would
// never classify either as rename-eligible, and the sha1() lookup must not
// dereference the nil Remote.
func TestManagerPairsPullDirectionRename(t *testing.T) {
	m := NewManager()
	from := metaUpdateRemoteRemove([]byte{5, 5, 5})
	to := dataUpdateRemoteRemove([]byte{5, 5, 5})

	if !m.Add(from) {
		t.Fatalf("expected pull-direction rename-from candidate to be consumed")
	}
	if !m.Add(to) {
		t.Fatalf("expected pull-direction rename-to candidate to be consumed")
	}

	pairs, residualFroms, residualToes := m.Drain()
	if len(pairs) != 1 {
		t.Fatalf("expected exactly one paired rename, got %d", len(pairs))
	}
	if len(residualFroms) != 0 || len(residualToes) != 0 {
		t.Fatalf("expected no residuals once paired")
	}
}

// TestCandidateSha1ReadsWhicheverSideIsPresent guards against the panic a
// prior version of sha1() hit whenever Local was nil: it picked which field
// to read off IsLocalRemove() rather than off which pointer was non-nil.
func TestCandidateSha1ReadsWhicheverSideIsPresent(t *testing.T) {
	remoteOnly := Candidate{
		Remote:   &model.File{SHA1: []byte{7, 7}},
		Decision: classifier.Decision{Mask: classifier.Mask(0)}, // IsLocalRemove() true, Local is nil
	}
	if got := remoteOnly.sha1(); got != "0707" {
		t.Fatalf("expected sha1 read from Remote, got %q", got)
	}

	localOnly := Candidate{
		Local:    &model.File{SHA1: []byte{8, 8}},
		Decision: classifier.Decision{Mask: classifier.Mask(0x05)}, // IsLocalRemove() false, Remote is nil
	}
	if got := localOnly.sha1(); got != "0808" {
		t.Fatalf("expected sha1 read from Local, got %q", got)
	}
}
