package classifier

import (
	"testing"

	"github.com/zisync/zisync/internal/model"
	"github.com/zisync/zisync/internal/protocol"
)

func mustDeviceID(b byte) protocol.DeviceID {
	var id protocol.DeviceID
	id[0] = b
	return id
}

func TestClassifyInsert(t *testing.T) {
	remote := &model.File{Path: "/a.txt", Type: model.FileTypeReg, SHA1: []byte{1, 2, 3}}
	d := Classify(nil, remote, mustDeviceID(1), mustDeviceID(2), "local-tree", "remote-tree")
	if d.Action != ActionInsert {
		t.Fatalf("expected ActionInsert, got %v", d.Action)
	}
	if !d.Mask.IsData() {
		t.Fatalf("expected data mask for a fresh regular-file insert")
	}
}

func TestClassifyPushInsertWhenRemoteUnknown(t *testing.T) {
	local := &model.File{Path: "/a.txt", Type: model.FileTypeReg, SHA1: []byte{1, 2, 3}}
	d := Classify(local, nil, mustDeviceID(1), mustDeviceID(2), "local-tree", "remote-tree")
	if d.Action != ActionInsert {
		t.Fatalf("expected ActionInsert for a local-only row, got %v", d.Action)
	}
	if !d.Mask.IsData() {
		t.Fatalf("expected data mask for a fresh regular-file push")
	}
	if !d.Mask.IsLocalNormal() || d.Mask.IsRemoteNormal() {
		t.Fatalf("expected local-present/remote-absent flags, got %v", d.Mask)
	}
}

func TestClassifySkipWhenLocalAhead(t *testing.T) {
	localTreeID := protocol.TreeUUIDToVectorID("local-tree")
	local := &model.File{Path: "/a.txt", Type: model.FileTypeReg, LocalVClock: 2}
	remote := &model.File{
		Path: "/a.txt", Type: model.FileTypeReg,
		RemoteVClock: protocol.Vector{}.Update(localTreeID, 1),
	}
	d := Classify(local, remote, mustDeviceID(1), mustDeviceID(2), "local-tree", "remote-tree")
	if d.Action != ActionSkip {
		t.Fatalf("expected ActionSkip when local vclock dominates, got %v", d.Action)
	}
}

func TestClassifyUpdateMetaOnlyWhenSameContent(t *testing.T) {
	localTreeID := protocol.TreeUUIDToVectorID("local-tree")
	local := &model.File{Path: "/a.txt", Type: model.FileTypeReg, SHA1: []byte{9}, LocalVClock: 1}
	remote := &model.File{
		Path: "/a.txt", Type: model.FileTypeReg, SHA1: []byte{9},
		RemoteVClock: protocol.Vector{}.Update(localTreeID, 2),
	}
	d := Classify(local, remote, mustDeviceID(1), mustDeviceID(2), "local-tree", "remote-tree")
	if d.Action != ActionUpdate {
		t.Fatalf("expected ActionUpdate, got %v", d.Action)
	}
	if d.Mask.IsData() {
		t.Fatalf("identical sha1 should stay meta-only")
	}
}

func TestClassifyConflictWinnerByDeviceID(t *testing.T) {
	localTreeID := protocol.TreeUUIDToVectorID("local-tree")
	local := &model.File{Path: "/a.txt", Type: model.FileTypeReg, SHA1: []byte{1}, LocalVClock: 2}
	remote := &model.File{
		Path: "/a.txt", Type: model.FileTypeReg, SHA1: []byte{2},
		RemoteVClock: protocol.Vector{}.Update(localTreeID, 1),
	}
	// Give the remote vclock an extra position so Compare reports Conflict
	// (local ahead at localTreeID, remote ahead at a third tree).
	remote.RemoteVClock = remote.RemoteVClock.Update(protocol.TreeUUIDToVectorID("third-tree"), 5)

	d := Classify(local, remote, mustDeviceID(1), mustDeviceID(2), "local-tree", "remote-tree")
	if d.Action != ActionConflict {
		t.Fatalf("expected ActionConflict, got %v", d.Action)
	}
	if !d.ConflictWinnerIsLocal {
		t.Fatalf("device 1 should win over device 2 by Compare < 0")
	}
}

func TestIsBackupSrcRemove(t *testing.T) {
	d := Decision{Mask: Mask(0)} // remote remove: flagRemoteNormal clear
	if !IsBackupSrcRemove(d, model.BackupSrc) {
		t.Fatalf("expected backup-src tree to reject a remote delete")
	}
	if IsBackupSrcRemove(d, model.BackupNone) {
		t.Fatalf("non-backup tree should not trigger IsBackupSrcRemove")
	}
}
