package certtype

import (
	"reflect"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Category
	}{
		{"делегат", "delegate", CategoryDelegate},
		{"делегат с наградой", "Best Delegate Award", CategoryDelegate},
		{"регистр", "DELEGATE", CategoryDelegate},
		{"секретариат", "Secretariat", CategorySecretariat},
		{"executive board", "Executive Board Member", CategoryExecutiveBoard},
		{"сокращение eb", "eb", CategoryExecutiveBoard},
		{"eb с пробелами", "  EB  ", CategoryExecutiveBoard},
		{"eb внутри слова не совпадает", "web developer", CategoryOther},
		{"campus ambassador", "Campus Ambassador", CategoryCampusAmbassador},
		{"неизвестная категория", "participation", CategoryOther},
		{"пустая строка", "", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.raw); got != tt.want {
				t.Errorf("Classify(%q) = %v, ожидалось %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestRequiredFields(t *testing.T) {
	tests := []struct {
		name string
		cat  Category
		want []string
	}{
		{"делегат", CategoryDelegate, []string{"committee", "country"}},
		{"секретариат", CategorySecretariat, []string{"department", "designation"}},
		{"executive board", CategoryExecutiveBoard, []string{"committee", "position"}},
		{"campus ambassador", CategoryCampusAmbassador, nil},
		{"прочее", CategoryOther, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cat.RequiredFields(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("RequiredFields() = %v, ожидалось %v", got, tt.want)
			}
		})
	}
}

func TestValidateFields(t *testing.T) {
	tests := []struct {
		name        string
		rawType     string
		fields      Fields
		wantValid   bool
		wantMissing []string
	}{
		{
			name:        "делегат без committee и country",
			rawType:     "delegate",
			fields:      Fields{ParticipantName: "A"},
			wantValid:   false,
			wantMissing: []string{"Committee", "Country"},
		},
		{
			name:      "делегат со всеми полями",
			rawType:   "delegate",
			fields:    Fields{ParticipantName: "A", Committee: "UNSC", Country: "France"},
			wantValid: true,
		},
		{
			name:        "делегат без country",
			rawType:     "Best Delegate",
			fields:      Fields{ParticipantName: "A", Committee: "UNSC"},
			wantValid:   false,
			wantMissing: []string{"Country"},
		},
		{
			name:      "campus ambassador только с именем",
			rawType:   "campus ambassador",
			fields:    Fields{ParticipantName: "A"},
			wantValid: true,
		},
		{
			name:      "секретариат не требует доп. полей при валидации",
			rawType:   "secretariat",
			fields:    Fields{ParticipantName: "A"},
			wantValid: true,
		},
		{
			name:        "пустое имя участника",
			rawType:     "participation",
			fields:      Fields{ParticipantName: "   "},
			wantValid:   false,
			wantMissing: []string{"Participant Name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateFields(tt.rawType, tt.fields)
			if got.Valid != tt.wantValid {
				t.Errorf("Valid = %v, ожидалось %v", got.Valid, tt.wantValid)
			}
			if !reflect.DeepEqual(got.MissingFields, tt.wantMissing) {
				t.Errorf("MissingFields = %v, ожидалось %v", got.MissingFields, tt.wantMissing)
			}
		})
	}
}
