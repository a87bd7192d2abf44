package braking

import "fmt"

// Standard profile catalogue. Values follow typical Hungarian rolling
// stock; each is built through the validating constructor so the
// catalogue can never hold an invalid profile.

func mustProfile(p Profile, err error) Profile {
	if err != nil {
		panic(fmt.Sprintf("invalid standard profile: %v", err))
	}
	return p
}

// ModernEMU is a modern electric multiple unit (FLIRT class).
func ModernEMU() Profile {
	return mustProfile(NewProfile("EMU_modern", 180, 120, BrakeP, 135, true, 160, 1.0))
}

// InterCity is a locomotive-hauled IC consist.
func InterCity() Profile {
	return mustProfile(NewProfile("IC", 450, 180, BrakeP, 110, true, 160, 1.0))
}

// RegionalDMU is a light regional diesel unit.
func RegionalDMU() Profile {
	return mustProfile(NewProfile("DMU_regional", 70, 50, BrakeP, 95, false, 100, 1.0))
}

// Freight is an average loaded freight consist.
func Freight() Profile {
	return mustProfile(NewProfile("freight", 1200, 450, BrakeG, 65, false, 100, 1.0))
}

// Suburban is a suburban electric set.
func Suburban() Profile {
	return mustProfile(NewProfile("suburban", 120, 120, BrakeP, 120, true, 120, 1.0))
}

// catalogue maps profile names usable in run configuration to their
// constructors.
var catalogue = map[string]func() Profile{
	"emu":      ModernEMU,
	"ic":       InterCity,
	"dmu":      RegionalDMU,
	"freight":  Freight,
	"suburban": Suburban,
}

// ProfileNames lists the names accepted by ProfileByName.
func ProfileNames() []string {
	return []string{"emu", "ic", "dmu", "freight", "suburban"}
}

// ProfileByName resolves a catalogue profile by its configuration name.
func ProfileByName(name string) (Profile, error) {
	ctor, ok := catalogue[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown braking profile %q (valid: emu, ic, dmu, freight, suburban)", name)
	}
	return ctor(), nil
}
