package scoring

type Bucket string

const (
	BucketExcellent Bucket = "Excellent"
	BucketVeryGood  Bucket = "Very Good"
	BucketGood      Bucket = "Good"
	BucketAverage   Bucket = "Average"
	BucketFail      Bucket = "Fail"
)

// BucketOf classifies a score. Thresholds are inclusive lower bounds.
func BucketOf(score float64) Bucket {
	switch {
	case score >= 90:
		return BucketExcellent
	case score >= 80:
		return BucketVeryGood
	case score >= 70:
		return BucketGood
	case score >= 60:
		return BucketAverage
	default:
		return BucketFail
	}
}

// AllBuckets lists buckets from best to worst.
func AllBuckets() []Bucket {
	return []Bucket{BucketExcellent, BucketVeryGood, BucketGood, BucketAverage, BucketFail}
}

// Range is a score interval used by the distribution histogram.
type Range string

const (
	Range0To59   Range = "0-59"
	Range60To69  Range = "60-69"
	Range70To79  Range = "70-79"
	Range80To89  Range = "80-89"
	Range90To100 Range = "90-100"
)

func RangeOf(score float64) Range {
	switch BucketOf(score) {
	case BucketExcellent:
		return Range90To100
	case BucketVeryGood:
		return Range80To89
	case BucketGood:
		return Range70To79
	case BucketAverage:
		return Range60To69
	default:
		return Range0To59
	}
}

// AllRanges lists ranges in ascending order.
func AllRanges() []Range {
	return []Range{Range0To59, Range60To69, Range70To79, Range80To89, Range90To100}
}
