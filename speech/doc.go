// Package speech derives timing, disfluency, pronunciation, and rate
// metrics from a transcription adapter's token output.
//
// Extraction is a pure function: identical input always yields identical
// Features, there are no network calls, and results are owned by the call
// that produced them. All clinical thresholds are fixed design constants
// exposed through Thresholds so deployments can tune them without code
// changes.
package speech
