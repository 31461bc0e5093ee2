package models

import "time"

// Prep is one analyzed profile stored in the "preps" collection.
type Prep struct {
	ID          string       `json:"id" firestore:"-"`
	UserID      string       `json:"userId" firestore:"userId"`
	LinkedInURL string       `json:"linkedinUrl" firestore:"linkedinUrl"`
	ProfileName string       `json:"profileName" firestore:"profileName"`
	AnalyzedAt  time.Time    `json:"analyzedAt" firestore:"analyzedAt"`
	ProfileData *ProfileData `json:"profileData,omitempty" firestore:"profileData,omitempty"`
	Notes       string       `json:"notes" firestore:"notes"`
	CreatedAt   time.Time    `json:"createdAt" firestore:"createdAt"`
	LastUpdated time.Time    `json:"lastUpdated" firestore:"lastUpdated"`
}

// ProfileData is the prep sheet returned by the analysis webhook.
type ProfileData struct {
	PersonalInfo *PersonalInfo  `json:"personalInfo" firestore:"personalInfo"`
	Sections     ProfileSection `json:"sections" firestore:"sections"`
}

type PersonalInfo struct {
	Name     string `json:"name" firestore:"name"`
	Title    string `json:"title" firestore:"title"`
	Location string `json:"location" firestore:"location"`
	Avatar   string `json:"avatar,omitempty" firestore:"avatar,omitempty"`
}

type ProfileSection struct {
	CareerHistory        []CareerEntry       `json:"careerHistory" firestore:"careerHistory"`
	CommunicationStyle   CommunicationStyle  `json:"communicationStyle" firestore:"communicationStyle"`
	CompanyInfo          CompanyInfo         `json:"companyInfo" firestore:"companyInfo"`
	PersonalInterests    []string            `json:"personalInterests" firestore:"personalInterests"`
	RecentNews           []NewsItem          `json:"recentNews" firestore:"recentNews"`
	ConversationStarters []ConversationTopic `json:"conversationStarters" firestore:"conversationStarters"`
	DiscoveryQuestions   []DiscoveryQuestion `json:"discoveryQuestions" firestore:"discoveryQuestions"`
}

type CareerEntry struct {
	Title       string `json:"title" firestore:"title"`
	Period      string `json:"period" firestore:"period"`
	Description string `json:"description" firestore:"description"`
}

type CommunicationStyle struct {
	PreferredStyle string `json:"preferredStyle" firestore:"preferredStyle"`
	BestApproach   string `json:"bestApproach" firestore:"bestApproach"`
	Avoid          string `json:"avoid" firestore:"avoid"`
	KeyTraits      string `json:"keyTraits" firestore:"keyTraits"`
}

type CompanyInfo struct {
	Name               string `json:"name" firestore:"name"`
	Industry           string `json:"industry" firestore:"industry"`
	Size               string `json:"size" firestore:"size"`
	Revenue            string `json:"revenue,omitempty" firestore:"revenue,omitempty"`
	KeyFocusAreas      string `json:"keyFocusAreas,omitempty" firestore:"keyFocusAreas,omitempty"`
	DigitalInitiatives string `json:"digitalInitiatives,omitempty" firestore:"digitalInitiatives,omitempty"`
}

type NewsItem struct {
	Title       string `json:"title" firestore:"title"`
	Date        string `json:"date" firestore:"date"`
	Description string `json:"description" firestore:"description"`
}

type ConversationTopic struct {
	Title       string `json:"title" firestore:"title"`
	Description string `json:"description" firestore:"description"`
	Icon        string `json:"icon,omitempty" firestore:"icon,omitempty"`
}

type DiscoveryQuestion struct {
	Title    string `json:"title" firestore:"title"`
	Question string `json:"question" firestore:"question"`
}
