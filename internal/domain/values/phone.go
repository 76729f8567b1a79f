package values

import "strconv"

// PhoneNumber is a phone number in E.164 format (+1234567890)
type PhoneNumber struct {
	number string
}

// syntheticBase offsets lead indices into the 555 fictional exchange.
const syntheticBase = 1000000

// SyntheticPhoneNumber returns the fictional +1555 number backing lead index i.
// It never leaves the process; only its hash is written out.
func SyntheticPhoneNumber(i int64) PhoneNumber {
	return PhoneNumber{number: "+1555" + strconv.FormatInt(syntheticBase+i, 10)}
}

// String returns the phone number in E.164 format
func (p PhoneNumber) String() string {
	return p.number
}
