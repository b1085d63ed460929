package classifier

import (
	"github.com/zisync/zisync/internal/model"
	"github.com/zisync/zisync/internal/protocol"
)

// Action is the decision the Sync Updater's merge-join queues for one row
// pair, after mask computation and the backup-direction filter (spec §4.6).
type Action int

const (
	ActionSkip Action = iota
	ActionInsert
	ActionUpdate
	ActionConflict
	ActionRename
)

// Decision is everything a downstream SyncFileTask needs to carry out one
// row's classification (spec §4.6/§4.7).
type Decision struct {
	Mask      Mask
	Action    Action
	ConflictWinnerIsLocal bool // valid only when Action == ActionConflict
}

// Classify mirrors SyncFile::SetSyncFileMask + AddSyncFile's mask-building
// sequence in sync_put_handler.cc: build the R/D flags from row presence and
// type, pick insert/update/conflict from a vector-clock Compare, then decide
// meta vs data. local/remote may each be nil (row absent on that side).
func Classify(local, remote *model.File, localDeviceID, remoteDeviceID protocol.DeviceID, localTreeUUID, remoteTreeUUID string) Decision {
	var m Mask

	if remote == nil || remote.IsRemoved() {
		// remote delete: flagRemoteNormal stays clear.
	} else {
		m |= flagRemoteNormal
		if remote.IsDir() {
			m |= flagRemoteDir
		}
	}
	if local == nil || local.IsRemoved() {
		// local delete: flagLocalNormal stays clear.
	} else {
		m |= flagLocalNormal
		if local.IsDir() {
			m |= flagLocalDir
		}
	}

	d := Decision{}

	switch {
	case local == nil:
		// Remote has a row this tree has never seen: pull-direction insert.
		m = m.setPhase(PhaseInsert)
		d.Action = ActionInsert
	case remote == nil:
		// Local has a row the remote peer has never seen: the mirror image,
		// a push-direction insert. Same Action; the caller tells push from
		// pull apart by which side came in nil (synctask does this).
		m = m.setPhase(PhaseInsert)
		d.Action = ActionInsert
	default:
		localVC := local.Vector(protocol.TreeUUIDToVectorID(localTreeUUID))
		remoteVC := remote.Vector(protocol.TreeUUIDToVectorID(remoteTreeUUID))
		cmp := localVC.Compare(remoteVC)
		switch cmp {
		case protocol.Lesser:
			m = m.setPhase(PhaseUpdate)
			d.Action = ActionUpdate
		case protocol.Conflict:
			m = m.setPhase(PhaseConflict)
			d.Action = ActionConflict
			d.ConflictWinnerIsLocal = localDeviceID.Compare(remoteDeviceID) < 0
		default:
			// Equal or local Greater: nothing to do, matches
			// AddSyncFile's "Vclock equal or local Greater" early return.
			d.Action = ActionSkip
			d.Mask = m
			return d
		}
	}

	// data vs meta: a regular-file source with no identical-content
	// destination moves data; everything else (dirs, removes, identical
	// content) is metadata-only, mirroring the two
	// MaskIsRemoteReg/MaskIsRemoteNormal checks in AddSyncFile. Either side
	// may be the "source": remote normal+reg covers the pull direction,
	// local normal+reg with no remote row covers the symmetric push
	// direction (remote == nil).
	switch {
	case remote != nil && m.IsRemoteNormal() && m.IsRemoteReg():
		if local != nil && m.IsLocalNormal() && m.IsLocalReg() && sameContent(local, remote) {
			m = m.setData(false)
		} else {
			m = m.setData(true)
		}
	case remote == nil && local != nil && m.IsLocalNormal() && m.IsLocalReg():
		m = m.setData(true)
	default:
		m = m.setData(false)
	}

	d.Mask = m
	return d
}

func sameContent(local *model.File, remote *model.File) bool {
	if len(local.SHA1) == 0 || len(remote.SHA1) == 0 {
		return false
	}
	if len(local.SHA1) != len(remote.SHA1) {
		return false
	}
	for i := range local.SHA1 {
		if local.SHA1[i] != remote.SHA1[i] {
			return false
		}
	}
	return true
}

// IsBackupSrcRemove reports whether this row pair is a delete arriving at a
// backup-source tree — backup-src trees never receive deletes pushed back
// from their backup-dst peer (spec §4.6, original_source's IsBackupSrcRemove).
func IsBackupSrcRemove(d Decision, localTreeBackupType model.BackupType) bool {
	// d.Action == ActionInsert with IsRemoteRemove() set is actually a
	// push-direction insert (the remote side has no row at all yet, not a
	// tombstone) and must not be filtered out as if it were an incoming
	// delete.
	return localTreeBackupType == model.BackupSrc && d.Mask.IsRemoteRemove() && d.Action != ActionInsert
}

// IsBackupDstInsert reports whether this row pair is a fresh insert that the
// backup relationship forbids originating locally (spec §4.6,
// IsBackupDstInsert): a backup-dst tree only ever receives from its source,
// so an insert whose local row is present (a push-direction insert out of
// the dst) is dropped. Pull-direction inserts into the dst pass.
func IsBackupDstInsert(d Decision, localTreeBackupType model.BackupType) bool {
	return localTreeBackupType == model.BackupDst && d.Action == ActionInsert && d.Mask.IsLocalNormal()
}

// IsBackupNotSync combines both backup-direction filters (spec §4.6).
func IsBackupNotSync(d Decision, localTreeBackupType model.BackupType) bool {
	return IsBackupSrcRemove(d, localTreeBackupType) || IsBackupDstInsert(d, localTreeBackupType)
}
