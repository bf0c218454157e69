package validator

// 512kb cap on submitted source files
const maxSubmissionBytes = 512 * 1024

func ValidateSubmissionSize(size int) bool {
	return size <= maxSubmissionBytes
}
