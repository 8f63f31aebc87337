package imu

// Sample is a single raw accelerometer+gyroscope reading in the device frame.
// Timestamps are monotonic milliseconds; accelerations are m/s² and include
// gravity, gyro rates are deg/s. Samples arrive at 20-100 Hz and are never
// assumed equally spaced.
type Sample struct {
	T  float64 `json:"t"`
	Ax float32 `json:"ax"`
	Ay float32 `json:"ay"`
	Az float32 `json:"az"`
	Gx float32 `json:"gx"`
	Gy float32 `json:"gy"`
	Gz float32 `json:"gz"`
}
