package nmea

// mapSatNum translates a GSV satellite number, as reported by a given
// talker, into the normalized (prn, gnssID, svID) triple: GPS 1-32,
// SBAS 33-64 remapped to 120-151, GLONASS 65-96, QZSS 193-197, Galileo
// 1-36 offset +300, BeiDou 1-37 offset +400, IMES 173-182.
//
// gnssID follows the u-blox/NMEA-4.10 convention: 0=GPS, 1=SBAS,
// 2=Galileo, 3=BeiDou, 5=QZSS, 6=GLONASS, 4=IMES.
func mapSatNum(talker string, satNum int) (prn, gnssID, svID int) {
	switch {
	case talker == "GA" && satNum >= 1 && satNum <= 36:
		return satNum + 300, 2, satNum // Galileo
	case talker == "GB" && satNum >= 1 && satNum <= 37:
		return satNum + 400, 3, satNum // BeiDou
	case satNum >= 1 && satNum <= 32:
		return satNum, 0, satNum // GPS
	case satNum >= 33 && satNum <= 64:
		prn := satNum - 33 + 120
		return prn, 1, satNum - 32 // SBAS
	case satNum >= 65 && satNum <= 96:
		return satNum, 6, satNum - 64 // GLONASS
	case satNum >= 173 && satNum <= 182:
		return satNum, 4, satNum - 172 // IMES
	case satNum >= 193 && satNum <= 197:
		return satNum, 5, satNum - 192 // QZSS
	default:
		return satNum, -1, satNum
	}
}
