package fix

// Merge applies newdata into old according to mask, returning the
// updated Fix. Every bit in mask copies the corresponding
// field verbatim, with one exception: MODE_SET that would downgrade the
// mode is suppressed when the prior cycle held a valid 3D fix, the new
// mode is not NoFix, and some altitude source (either cycle) is finite —
// this absorbs the asymmetry of RMC, which never reports 2D vs 3D.
//
// Merge is a pure function of (old, mask, newdata): calling it twice
// with the same arguments yields the same result.
func Merge(old Fix, mask Mask, newdata Fix) Fix {
	cur := old

	if mask.Has(TimeSet) {
		cur.Time = newdata.Time
	}
	if mask.Has(LatLonSet) {
		cur.Lat = newdata.Lat
		cur.Lon = newdata.Lon
	}
	if mask.Has(AltitudeSet) {
		cur.AltMSL = newdata.AltMSL
		cur.AltHAE = newdata.AltHAE
		cur.GeoidSep = newdata.GeoidSep
	}
	if mask.Has(SpeedSet) {
		cur.Speed = newdata.Speed
	}
	if mask.Has(TrackSet) {
		cur.Track = newdata.Track
	}
	if mask.Has(ClimbSet) {
		cur.Climb = newdata.Climb
	}
	if mask.Has(StatusSet) {
		cur.Status = newdata.Status
		cur.DGPSAge = newdata.DGPSAge
		cur.DGPSStation = newdata.DGPSStation
	}
	if mask.Has(UsedSet) {
		cur.SatellitesUsed = newdata.SatellitesUsed
	}
	if mask.Has(MagneticVarSet) {
		cur.MagVar = newdata.MagVar
	}
	if mask.Has(ErrSet) {
		cur.Ept = newdata.Ept
		cur.Epx = newdata.Epx
		cur.Epy = newdata.Epy
		cur.Epv = newdata.Epv
		cur.Eps = newdata.Eps
		cur.Epc = newdata.Epc
		cur.Epd = newdata.Epd
	}

	if mask.Has(ModeSet) {
		downgrade := newdata.Mode < old.Mode
		suppress := downgrade &&
			old.Mode == Mode3D &&
			newdata.Mode != ModeNoFix &&
			(IsSet(newdata.AltMSL) || IsSet(old.AltMSL) || IsSet(newdata.AltHAE) || IsSet(old.AltHAE))
		if !suppress {
			cur.Mode = newdata.Mode
		}
	}

	return cur
}
