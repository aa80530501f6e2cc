package schools

import "math"

// EarthRadiusKm is the mean earth radius used for distances.
const EarthRadiusKm = 6371.0

// DegreesPerKm approximates one kilometre in degrees of latitude. It is
// only used to size the bounding box before exact distances are computed.
const DegreesPerKm = 0.009

// Haversine returns the great-circle distance in kilometres.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	φ1, φ2 := radians(lat1), radians(lat2)
	dφ := radians(lat2 - lat1)
	dλ := radians(lng2 - lng1)
	a := math.Sin(dφ/2)*math.Sin(dφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(dλ/2)*math.Sin(dλ/2)
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// box is a latitude/longitude bounding box.
type box struct {
	minLat, maxLat, minLng, maxLng float64
}

func around(lat, lng, radiusKm float64) box {
	d := radiusKm * DegreesPerKm
	return box{minLat: lat - d, maxLat: lat + d, minLng: lng - d, maxLng: lng + d}
}
