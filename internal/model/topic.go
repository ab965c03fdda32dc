// Package model defines the data structures shared by every layer of the tracker.
package model

import "time"

// Topic is a named group of practice problems. Problems are embedded: they have
// no store of their own and are always read and written together with their topic.
type Topic struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Problems    []Problem `json:"problems"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Problem is a single practice exercise inside a Topic.
//
// Level is free text. The summary buckets it by substring ("easy", "medium",
// "hard"/"tough"), so values like "Easy+" or "Medium (tricky)" still count.
type Problem struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Level          string    `json:"level"`
	LeetcodeLink   string    `json:"leetcodeLink"`
	CodeforcesLink string    `json:"codeforcesLink,omitempty"`
	YoutubeLink    string    `json:"youtubeLink,omitempty"`
	ArticleLink    string    `json:"articleLink,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
