// Package gormstore persists diarization state in SQLite through GORM.
package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ocobra/meeting-minutes-sub000/database"
	"github.com/ocobra/meeting-minutes-sub000/diarization"
	"github.com/ocobra/meeting-minutes-sub000/errors"
	"github.com/ocobra/meeting-minutes-sub000/store"
)

var _ store.Store = (*Store)(nil)

// Store implements store.Store on a database.DB.
type Store struct {
	db *database.DB
}

// New wraps db, migrating the schema when the database config asks for it.
func New(db *database.DB) (*Store, error) {
	if db.Config().AutoMigrate {
		if err := db.AutoMigrate(Models()...); err != nil {
			return nil, err
		}
	}
	return &Store{db: db}, nil
}

// Migrate creates or updates the store's tables.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(Models()...)
}

func (s *Store) SaveSpeakerSegments(ctx context.Context, meetingID string, segments []diarization.SpeakerSegment) error {
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("meeting_id = ?", meetingID).Delete(&speakerSegmentRow{}).Error; err != nil {
			return err
		}
		if len(segments) == 0 {
			return nil
		}
		rows := make([]speakerSegmentRow, len(segments))
		for i, seg := range segments {
			rows[i] = speakerSegmentRow{
				MeetingID:     meetingID,
				Seq:           i,
				SpeakerLabel:  seg.SpeakerLabel,
				StartTime:     seg.StartTime,
				EndTime:       seg.EndTime,
				Confidence:    seg.Confidence,
				EmbeddingHash: seg.EmbeddingHash,
			}
		}
		return tx.CreateInBatches(rows, 200).Error
	})
	return wrap(err, "speaker segments")
}

func (s *Store) ListSpeakerSegments(ctx context.Context, meetingID string) ([]diarization.SpeakerSegment, error) {
	var rows []speakerSegmentRow
	if err := s.db.WithContext(ctx).Where("meeting_id = ?", meetingID).Order("seq").Find(&rows).Error; err != nil {
		return nil, wrap(err, "speaker segments")
	}
	out := make([]diarization.SpeakerSegment, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) SaveSynchronizedSegments(ctx context.Context, meetingID string, segments []diarization.SynchronizedSegment) error {
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("meeting_id = ?", meetingID).Delete(&synchronizedSegmentRow{}).Error; err != nil {
			return err
		}
		if len(segments) == 0 {
			return nil
		}
		rows := make([]synchronizedSegmentRow, len(segments))
		for i, seg := range segments {
			rows[i] = synchronizedSegmentRow{
				MeetingID:     meetingID,
				Seq:           i,
				Text:          seg.Text,
				StartTime:     seg.StartTime,
				EndTime:       seg.EndTime,
				SpeakerLabels: seg.SpeakerLabels,
				IsOverlapping: seg.IsOverlapping,
			}
		}
		return tx.CreateInBatches(rows, 200).Error
	})
	return wrap(err, "synchronized segments")
}

func (s *Store) ListSynchronizedSegments(ctx context.Context, meetingID string) ([]diarization.SynchronizedSegment, error) {
	rows, err := listSynchronized(s.db.WithContext(ctx), meetingID)
	if err != nil {
		return nil, wrap(err, "synchronized segments")
	}
	out := make([]diarization.SynchronizedSegment, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func listSynchronized(db *gorm.DB, meetingID string) ([]synchronizedSegmentRow, error) {
	var rows []synchronizedSegmentRow
	err := db.Where("meeting_id = ?", meetingID).Order("seq").Find(&rows).Error
	return rows, err
}

func (s *Store) GetMapping(ctx context.Context, meetingID, label string) (*diarization.SpeakerMapping, error) {
	var row speakerMappingRow
	err := s.db.WithContext(ctx).
		Where("meeting_id = ? AND speaker_label = ?", meetingID, label).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("speaker mapping", label)
		}
		return nil, wrap(err, "speaker mapping")
	}
	m := row.toDomain()
	return &m, nil
}

func (s *Store) ListMappings(ctx context.Context, meetingID string) ([]diarization.SpeakerMapping, error) {
	var rows []speakerMappingRow
	if err := s.db.WithContext(ctx).Where("meeting_id = ?", meetingID).Order("speaker_label").Find(&rows).Error; err != nil {
		return nil, wrap(err, "speaker mappings")
	}
	out := make([]diarization.SpeakerMapping, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) SaveMappings(ctx context.Context, mappings []diarization.SpeakerMapping) error {
	if len(mappings) == 0 {
		return nil
	}
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		for _, m := range mappings {
			if err := upsertMapping(tx, mappingRow(m)); err != nil {
				return err
			}
		}
		return nil
	})
	return wrap(err, "speaker mappings")
}

func upsertMapping(tx *gorm.DB, row speakerMappingRow) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "meeting_id"}, {Name: "speaker_label"}},
		UpdateAll: true,
	}).Create(&row).Error
}

func (s *Store) MergeLabels(ctx context.Context, meetingID, source, target string, merged diarization.SpeakerMapping) error {
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		deleted := tx.Where("meeting_id = ? AND speaker_label = ?", meetingID, source).Delete(&speakerMappingRow{})
		if deleted.Error != nil {
			return deleted.Error
		}
		found := deleted.RowsAffected > 0

		moved := tx.Model(&speakerSegmentRow{}).
			Where("meeting_id = ? AND speaker_label = ?", meetingID, source).
			Update("speaker_label", target)
		if moved.Error != nil {
			return moved.Error
		}
		found = found || moved.RowsAffected > 0

		rows, err := listSynchronized(tx, meetingID)
		if err != nil {
			return err
		}
		for _, row := range rows {
			seg, changed := store.RelabelSynchronized(row.toDomain(), source, target)
			if !changed {
				continue
			}
			found = true
			row.SpeakerLabels = seg.SpeakerLabels
			row.IsOverlapping = seg.IsOverlapping
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		}

		if !found {
			return errors.NotFound("speaker label", source)
		}

		merged.MeetingID = meetingID
		merged.SpeakerLabel = target
		return upsertMapping(tx, mappingRow(merged))
	})
	return wrap(err, "speaker label")
}

func (s *Store) DeleteMeeting(ctx context.Context, meetingID string) error {
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		for _, model := range []interface{}{&speakerSegmentRow{}, &synchronizedSegmentRow{}, &speakerMappingRow{}} {
			if err := tx.Where("meeting_id = ?", meetingID).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return wrap(err, "meeting")
}

func (s *Store) CreateVoiceProfile(ctx context.Context, profile diarization.VoiceProfile, session diarization.EnrollmentSession) error {
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		row := profileRow(profile)
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errors.Conflict("voice profile " + profile.ID + " already exists").WithCause(err)
			}
			return err
		}
		sessionRow := enrollmentSessionRow{
			ID:                   session.ID,
			VoiceProfileID:       profile.ID,
			AudioDurationSeconds: session.AudioDurationSeconds,
			SampleCount:          session.SampleCount,
			CreatedAt:            session.CreatedAt,
		}
		return tx.Create(&sessionRow).Error
	})
	return wrap(err, "voice profile")
}

func (s *Store) GetVoiceProfile(ctx context.Context, id string) (*diarization.VoiceProfile, error) {
	var row voiceProfileRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("voice profile", id)
		}
		return nil, wrap(err, "voice profile")
	}
	p := row.toDomain()
	return &p, nil
}

func (s *Store) ListVoiceProfiles(ctx context.Context) ([]diarization.VoiceProfile, error) {
	var rows []voiceProfileRow
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, wrap(err, "voice profiles")
	}
	out := make([]diarization.VoiceProfile, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) TouchVoiceProfile(ctx context.Context, id string, seenAt time.Time) error {
	res := s.db.WithContext(ctx).Model(&voiceProfileRow{}).Where("id = ?", id).Updates(map[string]interface{}{
		"last_seen":     seenAt,
		"meeting_count": gorm.Expr("meeting_count + 1"),
	})
	if res.Error != nil {
		return wrap(res.Error, "voice profile")
	}
	if res.RowsAffected == 0 {
		return errors.NotFound("voice profile", id)
	}
	return nil
}

func (s *Store) DeleteVoiceProfile(ctx context.Context, id string) error {
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&voiceProfileRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.NotFound("voice profile", id)
		}
		return tx.Where("voice_profile_id = ?", id).Delete(&enrollmentSessionRow{}).Error
	})
	return wrap(err, "voice profile")
}

func (s *Store) DeleteInactiveProfiles(ctx context.Context, cutoff time.Time) (int, error) {
	var n int
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&voiceProfileRow{}).Where("last_seen < ?", cutoff).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("voice_profile_id IN ?", ids).Delete(&enrollmentSessionRow{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&voiceProfileRow{})
		n = int(res.RowsAffected)
		return res.Error
	})
	return n, wrap(err, "voice profiles")
}

func (s *Store) ListEnrollmentSessions(ctx context.Context, profileID string) ([]diarization.EnrollmentSession, error) {
	var rows []enrollmentSessionRow
	if err := s.db.WithContext(ctx).Where("voice_profile_id = ?", profileID).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, wrap(err, "enrollment sessions")
	}
	out := make([]diarization.EnrollmentSession, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// wrap converts storage errors to AppErrors, leaving AppErrors and context
// errors as they are.
func wrap(err error, resource string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return database.FromDatabase(err, resource)
}
