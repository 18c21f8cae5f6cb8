package strategy

import (
	"fmt"
	"math/rand"

	"github.com/raaihank/pii-sentinel/internal/entity"
)

// Word lists for shape-preserving synthetic values. Small on purpose:
// distinctness comes from combining parts and numeric suffixes, not
// list size.
var (
	firstNames = []string{
		"James", "Mary", "Robert", "Patricia", "Michael", "Jennifer",
		"David", "Linda", "William", "Elizabeth", "Richard", "Susan",
		"Thomas", "Jessica", "Carlos", "Maria", "Arjun", "Priya",
		"Wei", "Amara",
	}
	lastNames = []string{
		"Anderson", "Brooks", "Carter", "Dawson", "Ellis", "Foster",
		"Grant", "Hayes", "Iyer", "Jensen", "Khan", "Larsen",
		"Mendez", "Novak", "Okafor", "Petrov", "Quinn", "Reyes",
		"Singh", "Tanaka",
	}
	companies = []string{
		"Acme Corp", "Globex Inc", "Initech", "Umbrella Ltd",
		"Stark Industries", "Wayne Enterprises", "Hooli",
		"Vandelay Industries", "Wonka Co", "Cyberdyne Systems",
	}
	cities = []string{
		"Springfield", "Riverton", "Lakewood", "Fairview", "Oakdale",
		"Milton", "Ashford", "Brookhaven", "Clearwater", "Greenfield",
	}
	countries = []string{
		"Freedonia", "Sylvania", "Zubrowka", "Genovia", "Wakanda",
		"Latveria", "Elbonia", "Krakozhia",
	}
	streets = []string{
		"Maple Street", "Oak Avenue", "Cedar Lane", "Elm Road",
		"Pine Boulevard", "Willow Drive", "Birch Court",
	}
	domains = []string{
		"example.com", "example.org", "example.net", "mail.example.com",
	}
)

func pick(rng *rand.Rand, list []string) string {
	return list[rng.Intn(len(list))]
}

// generate builds a synthetic value of the same shape as the entity
// type. Unknown types fall back to a bracketed placeholder.
func generate(rng *rand.Rand, t entity.Type) string {
	switch t {
	case entity.TypeEmail:
		return fmt.Sprintf("%s.%s%d@%s",
			lower(pick(rng, firstNames)), lower(pick(rng, lastNames)),
			rng.Intn(100), pick(rng, domains))
	case entity.TypePhone:
		return fmt.Sprintf("%03d-%03d-%04d", 200+rng.Intn(700), rng.Intn(1000), rng.Intn(10000))
	case entity.TypePersonName:
		return pick(rng, firstNames) + " " + pick(rng, lastNames)
	case entity.TypeOrganization:
		return pick(rng, companies)
	case entity.TypeLocation:
		return pick(rng, cities)
	case entity.TypeDate:
		return fmt.Sprintf("%04d-%02d-%02d", 1970+rng.Intn(55), 1+rng.Intn(12), 1+rng.Intn(28))
	case entity.TypeDateOfBirth:
		return fmt.Sprintf("%04d-%02d-%02d", 1950+rng.Intn(55), 1+rng.Intn(12), 1+rng.Intn(28))
	case entity.TypeCreditCard:
		return fmt.Sprintf("4%03d %04d %04d %04d", rng.Intn(1000), rng.Intn(10000), rng.Intn(10000), rng.Intn(10000))
	case entity.TypeSSN:
		return fmt.Sprintf("%03d-%02d-%04d", 100+rng.Intn(572), 1+rng.Intn(99), 1+rng.Intn(9999))
	case entity.TypeIPAddress:
		return fmt.Sprintf("192.0.2.%d", rng.Intn(256))
	case entity.TypeURL:
		return "https://" + pick(rng, domains) + "/page" + fmt.Sprint(rng.Intn(1000))
	case entity.TypeAadhaar:
		return fmt.Sprintf("%04d %04d %04d", 2000+rng.Intn(8000), 1000+rng.Intn(9000), 1000+rng.Intn(9000))
	case entity.TypePANCard:
		return fmt.Sprintf("%s%04d%s", upperRunes(rng, 5), rng.Intn(10000), upperRunes(rng, 1))
	case entity.TypePassport:
		return fmt.Sprintf("%s%07d", upperRunes(rng, 1), 1000000+rng.Intn(9000000))
	case entity.TypeZipCode:
		return fmt.Sprintf("%05d", rng.Intn(100000))
	case entity.TypeFinancial:
		return fmt.Sprintf("$%d.%02d", 100+rng.Intn(99900), rng.Intn(100))
	case entity.TypeNationality:
		return pick(rng, countries)
	case entity.TypeFacility:
		return fmt.Sprintf("%d %s", 1+rng.Intn(9999), pick(rng, streets))
	case entity.TypeAddress:
		return fmt.Sprintf("%d %s, %s", 1+rng.Intn(9999), pick(rng, streets), pick(rng, cities))
	case entity.TypeTime:
		return fmt.Sprintf("%02d:%02d", rng.Intn(24), rng.Intn(60))
	case entity.TypeNumber:
		return fmt.Sprint(1 + rng.Intn(9999))
	default:
		return "[ANON_" + string(t) + "]"
	}
}

func lower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

func upperRunes(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('A' + rng.Intn(26))
	}
	return string(b)
}
