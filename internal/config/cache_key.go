package config

import (
	"fmt"

	"github.com/google/uuid"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// TakerQuestionSetKey returns the cache key holding the resolved question set
// handed to a taker the first time they start an exam. Repeated start calls
// read this key so a taker always sees the same draw.
func (r *CacheKeyStruct) TakerQuestionSetKey(takerID uuid.UUID, code string) string {
	return fmt.Sprintf("taker:%s:exam:%s:question_set", takerID, code)
}

// ExamMonitorChannel returns the Redis PubSub channel for an exam's live
// attempt monitor. Registration, start and submit events are published here.
func (r *CacheKeyStruct) ExamMonitorChannel(code string) string {
	return fmt.Sprintf("exam:%s:monitor", code)
}

var CacheKey = NewCacheKeyStruct()
