// Package protocol defines protocols, their subsets and the databases that
// group them.
//
// A Protocol is a capability tag plus an ordered list of subset generators.
// Calling a subset by name looks its generator up in that list.
package protocol

import "strings"

// Capability is the task-specific base a protocol is built on.
type Capability struct {
	// Name is the capability name, e.g. "SpeakerDiarizationProtocol".
	Name string
	// Task is the task name as written in catalog documents.
	Task string
}

// Task names with a registered capability.
const (
	TaskProtocol                  = "Protocol"
	TaskCollection                = "Collection"
	TaskSpeakerDiarization        = "SpeakerDiarization"
	TaskSpeakerVerification       = "SpeakerVerification"
	TaskSpeakerIdentification     = "SpeakerIdentification"
	TaskSpeakerSpotting           = "SpeakerSpotting"
	TaskSpeechActivityDetection   = "SpeechActivityDetection"
	TaskSpeakerChangeDetection    = "SpeakerChangeDetection"
	TaskOverlappedSpeechDetection = "OverlappedSpeechDetection"
)

var capabilities = map[string]Capability{}

func init() {
	for _, task := range []string{
		TaskProtocol,
		TaskCollection,
		TaskSpeakerDiarization,
		TaskSpeakerVerification,
		TaskSpeakerIdentification,
		TaskSpeakerSpotting,
		TaskSpeechActivityDetection,
		TaskSpeakerChangeDetection,
		TaskOverlappedSpeechDetection,
	} {
		c := Capability{Name: CapabilityName(task), Task: task}
		capabilities[c.Name] = c
	}
}

// CapabilityName returns "{task}Protocol", or "Protocol" for the generic task.
func CapabilityName(task string) string {
	if task == TaskProtocol {
		return "Protocol"
	}
	return task + "Protocol"
}

// LookupCapability returns the capability for a task name.
func LookupCapability(task string) (Capability, bool) {
	c, ok := capabilities[CapabilityName(task)]
	return c, ok
}

// IsCollection reports whether the capability is the subset-less collection.
func (c Capability) IsCollection() bool {
	return c.Task == TaskCollection
}

func (c Capability) String() string {
	return c.Name
}

// Subset names the partitions a protocol can declare.
type Subset string

// Recognized subsets.
const (
	SubsetFiles       Subset = "files"
	SubsetTrain       Subset = "train"
	SubsetDevelopment Subset = "development"
	SubsetTest        Subset = "test"
)

// AllSubsets lists the recognized subsets.
var AllSubsets = []Subset{SubsetFiles, SubsetTrain, SubsetDevelopment, SubsetTest}

// ParseSubset validates a subset name.
func ParseSubset(name string) (Subset, bool) {
	for _, s := range AllSubsets {
		if string(s) == name {
			return s, true
		}
	}
	return "", false
}

// MethodName returns the iteration method name, e.g. "train_iter".
func (s Subset) MethodName() string {
	return string(s) + "_iter"
}

// ParseMethodName accepts either "train" or "train_iter".
func ParseMethodName(name string) (Subset, bool) {
	return ParseSubset(strings.TrimSuffix(name, "_iter"))
}
