package media

// EstimateChunkDuration computes a first-guess segment duration in
// milliseconds for a given byte budget. The estimate is advisory: compressed
// audio density varies with content and reported bit rates are nominal, so
// the pipeline verifies every exported segment against the budget and shrinks
// when the estimate overshoots.
//
// When the bit rate is known, byte density follows from it directly. When
// only the duration is known, the file's average density is used. With
// neither, the budget itself is returned as the duration guess, leaving the
// shrink loop to do all the work.
func EstimateChunkDuration(durationMS, bitRate, fileSize, byteBudget, minChunkMS int64) int64 {
	var bytesPerMS float64
	switch {
	case bitRate > 0:
		bytesPerMS = float64(bitRate) / 8 / 1000
	case durationMS > 0:
		bytesPerMS = float64(fileSize) / float64(durationMS)
	default:
		return maxInt64(byteBudget, minChunkMS)
	}
	if bytesPerMS < 1 {
		bytesPerMS = 1
	}

	targetMS := int64(float64(byteBudget) / bytesPerMS)
	return maxInt64(targetMS, minChunkMS)
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
