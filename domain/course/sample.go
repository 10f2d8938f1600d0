package course

import (
	"github.com/artpar/coursesync/domain/content"
)

// SampleCourses returns the seed catalogue used when hydration from the
// remote authority fails. One entry is stored in the legacy module shape to
// keep the legacy import path exercised.
func SampleCourses() []Document {
	return []Document{
		Normalize(Document{Course: Course{
			ID:          "sample-onboarding",
			Title:       "Welcome to the Team",
			Description: "Everything a new hire needs in their first week.",
			Status:      StatusPublished,
			Tags:        []string{"onboarding"},
			Chapters: []Chapter{
				{
					ID:    "sample-onboarding-ch1",
					Title: "Getting Started",
					Lessons: []Lesson{
						{
							ID:         "sample-onboarding-l1",
							Title:      "A message from the founders",
							Type:       content.TypeVideo,
							IsRequired: true,
							Content: content.Content{
								SchemaVersion: content.SchemaVersion,
								Type:          content.TypeVideo,
								Video: &content.Video{
									URL:           "https://videos.example.com/welcome.mp4",
									LengthSeconds: 420,
								},
							},
						},
						{
							ID:                "sample-onboarding-l2",
							Title:             "How we work",
							Type:              content.TypeText,
							EstimatedDuration: 10,
							Content: content.Content{
								SchemaVersion: content.SchemaVersion,
								Type:          content.TypeText,
								Text:          &content.Text{Body: "We write things down and default to async."},
							},
						},
					},
				},
			},
		}}),
		Normalize(Document{
			Course: Course{
				ID:          "sample-leadership",
				Slug:        "leadership-101",
				Title:       "Leadership 101",
				Description: "Foundations of leading small teams with care.",
				Status:      StatusDraft,
			},
			Modules: []Module{
				{
					ID:    "sample-leadership-m1",
					Title: "Intro",
					Lessons: []Lesson{
						{
							ID:       "sample-leadership-l1",
							Title:    "What leaders do",
							Duration: "15 min",
							Content: content.Migrate(map[string]any{
								"content": "Leaders set direction and remove obstacles.",
							}),
						},
						{
							ID:       "sample-leadership-l2",
							Title:    "Check your understanding",
							Duration: "5 min",
							Content: content.Migrate(map[string]any{
								"questions": []any{
									map[string]any{
										"question": "What is a leader's first job?",
										"options":  []any{"Set direction", "Write code"},
										"answer":   0,
									},
								},
							}),
						},
					},
				},
			},
		}),
	}
}
