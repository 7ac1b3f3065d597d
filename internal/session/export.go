package session

import "peerprep/interview/internal/models"

// Export builds a deep copy of record, attaching segments[i] to question i.
// The result shares no memory with the record.
func Export(record *models.Session, segments []map[string][]models.Segment) *models.SessionSnapshot {
	snap := &models.SessionSnapshot{
		SessionID:            record.SessionID,
		Candidate:            record.Candidate,
		Questions:            make([]models.QuestionSnapshot, len(record.Questions)),
		StartTime:            record.StartTime,
		EndTime:              copyTime(record.EndTime),
		Status:               record.Status,
		CurrentQuestionIndex: record.CurrentQuestionIndex(),
	}
	snap.Candidate.Skills = append([]string(nil), record.Candidate.Skills...)

	for i, q := range record.Questions {
		entry := q
		entry.Answer = append(models.Answer(nil), q.Answer...)
		entry.Code = append([]models.CodeAttempt{}, q.Code...)
		entry.FaceExpressions = append([]models.FaceExpression{}, q.FaceExpressions...)
		entry.GazeTracking = append([]models.GazePoint{}, q.GazeTracking...)
		entry.EndTime = copyTime(q.EndTime)

		qs := models.QuestionSnapshot{QuestionEntry: entry}
		if i < len(segments) && len(segments[i]) > 0 {
			qs.ExpressionSegments = make(map[string][]models.Segment, len(segments[i]))
			for label, segs := range segments[i] {
				qs.ExpressionSegments[label] = append([]models.Segment(nil), segs...)
			}
		}
		snap.Questions[i] = qs
	}
	return snap
}

func copyTime(t *int64) *int64 {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
