package certid

import "testing"

func TestGenerate(t *testing.T) {
	seen := make(map[string]bool)
	lengths := make(map[int]int)
	for i := 0; i < 1000; i++ {
		id, err := Generate()
		if err != nil {
			t.Fatalf("Generate() вернул ошибку: %v", err)
		}
		if len(id) < MinLength || len(id) > MaxLength {
			t.Fatalf("длина идентификатора %d, ожидалось %d–%d: %q", len(id), MinLength, MaxLength, id)
		}
		if !Valid(id) {
			t.Fatalf("Generate() вернул невалидный идентификатор %q", id)
		}
		if seen[id] {
			t.Fatalf("повтор идентификатора %q за 1000 генераций", id)
		}
		seen[id] = true
		lengths[len(id)]++
	}
	// Монета даёт обе длины; вероятность не увидеть одну из них
	// за 1000 бросков пренебрежимо мала
	if lengths[MinLength] == 0 || lengths[MaxLength] == 0 {
		t.Errorf("распределение длин %v, ожидались обе: %d и %d", lengths, MinLength, MaxLength)
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"семь символов", "a1b2c3d", true},
		{"шесть символов", "abc123", true},
		{"слишком короткий", "ab12", false},
		{"слишком длинный", "abcd1234", false},
		{"заглавные буквы", "ABC1234", false},
		{"спецсимволы", "ab-123!", false},
		{"пустой", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Valid(tt.id); got != tt.want {
				t.Errorf("Valid(%q) = %v, ожидалось %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestVerificationURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		id   string
		want string
	}{
		{"без слэша", "https://certs.example.com/certificate", "a1b2c3d", "https://certs.example.com/certificate/a1b2c3d"},
		{"со слэшем", "https://certs.example.com/certificate/", "a1b2c3d", "https://certs.example.com/certificate/a1b2c3d"},
		{"голый домен", "https://certs.example.com", "abc123", "https://certs.example.com/abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerificationURL(tt.base, tt.id); got != tt.want {
				t.Errorf("VerificationURL() = %q, ожидалось %q", got, tt.want)
			}
		})
	}
}
