package sources

// YouTube transcript provider, split by responsibility:
//   youtube_innertube.go  — player response types, constants, JSON extraction
//   youtube_transcript.go — watch page / ANDROID player lookup, track choice,
//                           timedtext caption download into segments
