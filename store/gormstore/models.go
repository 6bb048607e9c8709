package gormstore

import (
	"time"

	"github.com/ocobra/meeting-minutes-sub000/diarization"
)

type voiceProfileRow struct {
	ID            string    `gorm:"primaryKey"`
	Name          string    `gorm:"not null"`
	EmbeddingHash string    `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
	LastSeen      time.Time `gorm:"index;not null"`
	MeetingCount  int       `gorm:"not null;default:0"`
}

func (voiceProfileRow) TableName() string { return "voice_profiles" }

func (r voiceProfileRow) toDomain() diarization.VoiceProfile {
	return diarization.VoiceProfile{
		ID:            r.ID,
		Name:          r.Name,
		EmbeddingHash: r.EmbeddingHash,
		CreatedAt:     r.CreatedAt,
		LastSeen:      r.LastSeen,
		MeetingCount:  r.MeetingCount,
	}
}

func profileRow(p diarization.VoiceProfile) voiceProfileRow {
	return voiceProfileRow{
		ID:            p.ID,
		Name:          p.Name,
		EmbeddingHash: p.EmbeddingHash,
		CreatedAt:     p.CreatedAt,
		LastSeen:      p.LastSeen,
		MeetingCount:  p.MeetingCount,
	}
}

// speakerMappingRow uses Modified rather than UpdatedAt so GORM does not
// overwrite the caller's timestamp.
type speakerMappingRow struct {
	MeetingID      string    `gorm:"primaryKey"`
	SpeakerLabel   string    `gorm:"primaryKey"`
	SpeakerName    *string
	VoiceProfileID *string   `gorm:"index"`
	Confidence     float64   `gorm:"not null"`
	IsManual       bool      `gorm:"not null;default:false"`
	Modified       time.Time `gorm:"column:updated_at"`
}

func (speakerMappingRow) TableName() string { return "speaker_mappings" }

func (r speakerMappingRow) toDomain() diarization.SpeakerMapping {
	return diarization.SpeakerMapping{
		MeetingID:      r.MeetingID,
		SpeakerLabel:   r.SpeakerLabel,
		SpeakerName:    r.SpeakerName,
		VoiceProfileID: r.VoiceProfileID,
		Confidence:     r.Confidence,
		IsManual:       r.IsManual,
		UpdatedAt:      r.Modified,
	}
}

func mappingRow(m diarization.SpeakerMapping) speakerMappingRow {
	return speakerMappingRow{
		MeetingID:      m.MeetingID,
		SpeakerLabel:   m.SpeakerLabel,
		SpeakerName:    m.SpeakerName,
		VoiceProfileID: m.VoiceProfileID,
		Confidence:     m.Confidence,
		IsManual:       m.IsManual,
		Modified:       m.UpdatedAt,
	}
}

type speakerSegmentRow struct {
	ID            uint   `gorm:"primaryKey"`
	MeetingID     string `gorm:"index:idx_speaker_segments_meeting,priority:1;not null"`
	Seq           int    `gorm:"index:idx_speaker_segments_meeting,priority:2"`
	SpeakerLabel  string `gorm:"not null"`
	StartTime     float64
	EndTime       float64
	Confidence    float64
	EmbeddingHash string
}

func (speakerSegmentRow) TableName() string { return "speaker_segments" }

func (r speakerSegmentRow) toDomain() diarization.SpeakerSegment {
	return diarization.SpeakerSegment{
		SpeakerLabel:  r.SpeakerLabel,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		Confidence:    r.Confidence,
		EmbeddingHash: r.EmbeddingHash,
	}
}

type synchronizedSegmentRow struct {
	ID            uint   `gorm:"primaryKey"`
	MeetingID     string `gorm:"index:idx_synchronized_segments_meeting,priority:1;not null"`
	Seq           int    `gorm:"index:idx_synchronized_segments_meeting,priority:2"`
	Text          string
	StartTime     float64
	EndTime       float64
	SpeakerLabels []string `gorm:"serializer:json"`
	IsOverlapping bool
}

func (synchronizedSegmentRow) TableName() string { return "synchronized_segments" }

func (r synchronizedSegmentRow) toDomain() diarization.SynchronizedSegment {
	labels := r.SpeakerLabels
	if labels == nil {
		labels = []string{}
	}
	return diarization.SynchronizedSegment{
		Text:          r.Text,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		SpeakerLabels: labels,
		IsOverlapping: r.IsOverlapping,
	}
}

type enrollmentSessionRow struct {
	ID                   string `gorm:"primaryKey"`
	VoiceProfileID       string `gorm:"index;not null"`
	AudioDurationSeconds float64
	SampleCount          int
	CreatedAt            time.Time
}

func (enrollmentSessionRow) TableName() string { return "enrollment_sessions" }

func (r enrollmentSessionRow) toDomain() diarization.EnrollmentSession {
	return diarization.EnrollmentSession{
		ID:                   r.ID,
		VoiceProfileID:       r.VoiceProfileID,
		AudioDurationSeconds: r.AudioDurationSeconds,
		SampleCount:          r.SampleCount,
		CreatedAt:            r.CreatedAt,
	}
}

// Models lists every table the store owns, in migration order.
func Models() []interface{} {
	return []interface{}{
		&voiceProfileRow{},
		&enrollmentSessionRow{},
		&speakerMappingRow{},
		&speakerSegmentRow{},
		&synchronizedSegmentRow{},
	}
}
