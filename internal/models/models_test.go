package models

import (
	"encoding/json"
	"testing"
)

func expectErrCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error code %s but got nil", code)
	}
	resp, ok := err.(*ErrorResponse)
	if !ok {
		t.Fatalf("expected ErrorResponse, got %T", err)
	}
	if resp.Code != code {
		t.Fatalf("expected error code %s, got %s", code, resp.Code)
	}
}

func intPtr(i int) *int { return &i }

func TestAnswerJSON(t *testing.T) {
	var a Answer
	if err := json.Unmarshal([]byte(`"hello"`), &a); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if len(a) != 1 || a[0] != "hello" {
		t.Fatalf("unexpected answer %#v", a)
	}

	if err := json.Unmarshal([]byte(`["a","b"]`), &a); err != nil {
		t.Fatalf("unmarshal array: %v", err)
	}
	if a.Text() != "a b" {
		t.Fatalf("unexpected text %q", a.Text())
	}

	if err := json.Unmarshal([]byte(`42`), &a); err == nil {
		t.Fatal("expected error for numeric answer")
	}

	out, _ := json.Marshal(Answer{})
	if string(out) != `""` {
		t.Fatalf("empty answer should marshal as empty string, got %s", out)
	}
	out, _ = json.Marshal(Answer{"one"})
	if string(out) != `"one"` {
		t.Fatalf("single fragment should marshal as string, got %s", out)
	}
	out, _ = json.Marshal(Answer{"one", "two"})
	if string(out) != `["one","two"]` {
		t.Fatalf("fragments should marshal as array, got %s", out)
	}
}

func TestScoreJSON(t *testing.T) {
	var fb Feedback
	if err := json.Unmarshal([]byte(`{"feedback":"ok","score":"7","correctAnswer":"x"}`), &fb); err != nil {
		t.Fatalf("unmarshal string score: %v", err)
	}
	if fb.Score != 7 {
		t.Fatalf("expected score 7, got %v", fb.Score)
	}

	if err := json.Unmarshal([]byte(`{"score":8.5}`), &fb); err != nil {
		t.Fatalf("unmarshal numeric score: %v", err)
	}
	if fb.Score != 8.5 {
		t.Fatalf("expected score 8.5, got %v", fb.Score)
	}

	for _, raw := range []string{`"great"`, `"NaN"`, `"Inf"`, `"+Inf"`, `"-inf"`} {
		if err := json.Unmarshal([]byte(`{"score":`+raw+`}`), &fb); err == nil {
			t.Fatalf("expected error for score %s", raw)
		}
	}

	if Score(11).InRange() || Score(-1).InRange() || !Score(10).InRange() {
		t.Fatal("unexpected InRange result")
	}
}

func TestNewQuestionRequestValidate(t *testing.T) {
	t.Run("missing question", func(t *testing.T) {
		req := &NewQuestionRequest{Round: RoundTechnical}
		expectErrCode(t, req.Validate(), CodeMalformedInput)
	})

	t.Run("missing round", func(t *testing.T) {
		req := &NewQuestionRequest{Question: "Q1"}
		expectErrCode(t, req.Validate(), CodeMalformedInput)
	})

	t.Run("unknown round", func(t *testing.T) {
		req := &NewQuestionRequest{Question: "Q1", Round: "coding"}
		expectErrCode(t, req.Validate(), CodeMalformedInput)
	})

	t.Run("negative time limit", func(t *testing.T) {
		req := &NewQuestionRequest{Question: "Q1", Round: RoundTechnical, TimeLimit: -1}
		expectErrCode(t, req.Validate(), CodeMalformedInput)
	})

	t.Run("time limit defaults per round", func(t *testing.T) {
		req := &NewQuestionRequest{Question: "Q1", Round: RoundBehavioral}
		if err := req.Validate(); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if req.TimeLimit != 60 {
			t.Fatalf("expected default 60s, got %d", req.TimeLimit)
		}
	})
}

func TestUpdateQuestionRequestValidate(t *testing.T) {
	expectErrCode(t, (&UpdateQuestionRequest{}).Validate(), CodeMalformedInput)
	expectErrCode(t, (&UpdateQuestionRequest{QuestionAnswerIndex: intPtr(0)}).Validate(), CodeMalformedInput)

	answer := Answer{"text"}
	req := &UpdateQuestionRequest{QuestionAnswerIndex: intPtr(0), Answer: &answer}
	if err := req.Validate(); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestTelemetryValidate(t *testing.T) {
	expectErrCode(t, (&FaceExpressionEvent{TimeStamp: 1, QuestionAnswerIndex: intPtr(0)}).Validate(), CodeMalformedInput)
	expectErrCode(t, (&FaceExpressionEvent{ExpressionState: "sad", QuestionAnswerIndex: intPtr(0)}).Validate(), CodeMalformedInput)
	expectErrCode(t, (&FaceExpressionEvent{ExpressionState: "sad", TimeStamp: 1}).Validate(), CodeMalformedInput)
	if err := (&FaceExpressionEvent{ExpressionState: "sad", TimeStamp: 1, QuestionAnswerIndex: intPtr(3)}).Validate(); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	expectErrCode(t, (&GazeEvent{QuestionAnswerIndex: intPtr(0)}).Validate(), CodeMalformedInput)
	if err := (&GazeEvent{TimeStamp: 5, QuestionAnswerIndex: intPtr(0)}).Validate(); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestRoundForIndex(t *testing.T) {
	cases := []struct {
		index int
		round Round
		limit int
	}{
		{0, RoundTechnical, 180},
		{1, RoundBehavioral, 60},
		{2, RoundAptitude, 60},
		{3, RoundSystemDesign, 180},
		{4, RoundEnd, 0},
		{-1, RoundEnd, 0},
	}
	for _, tc := range cases {
		round, limit := RoundForIndex(tc.index)
		if round != tc.round || limit != tc.limit {
			t.Fatalf("RoundForIndex(%d) = %s/%d, expected %s/%d", tc.index, round, limit, tc.round, tc.limit)
		}
	}
}

func TestSnapshotJSONFlattensEntry(t *testing.T) {
	snap := SessionSnapshot{
		SessionID: "c1",
		Questions: []QuestionSnapshot{{
			QuestionEntry:      QuestionEntry{Question: "Q1", Round: RoundTechnical, Score: 4},
			ExpressionSegments: map[string][]Segment{"sad": {{Expression: "sad", StartTime: 1, EndTime: 2}}},
		}, {
			QuestionEntry: QuestionEntry{Question: "Q2", Score: 8},
		}},
	}
	out, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	_ = json.Unmarshal(out, &decoded)
	questions := decoded["questions"].([]any)
	first := questions[0].(map[string]any)
	if first["question"] != "Q1" {
		t.Fatalf("expected flattened question field, got %v", first)
	}
	if _, ok := first["expressionSegments"]; !ok {
		t.Fatalf("expected expressionSegments in %v", first)
	}
	if snap.AverageScore() != 6 {
		t.Fatalf("expected average 6, got %v", snap.AverageScore())
	}
}
