package rule_test

import (
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/yeisme/tweetfreq/pkg/configs"
	"github.com/yeisme/tweetfreq/pkg/rule"
)

type lookupForm struct {
	Name string `rule:"required,max=16,screen_name"`
}

// TestEngine 测试 Engine 函数返回非 nil 实例.
func TestEngine(t *testing.T) {
	if rule.Engine() == nil {
		t.Error("Engine() returned nil")
	}
}

func TestValidateScreenName(t *testing.T) {
	cases := []struct {
		name  string
		valid bool
	}{
		{"jack", true},
		{"Some_User_2009", true},
		{"abcdefghijklmnop", true},   // 16
		{"abcdefghijklmnopq", false}, // 17
		{"", false},
		{"bad name", false},
		{"@jack", false},
		{"ü", false},
	}

	for _, tc := range cases {
		err := rule.ValidateScreenName(tc.name)
		if tc.valid && err != nil {
			t.Errorf("%q: unexpected error %v", tc.name, err)
		}

		if !tc.valid && err == nil {
			t.Errorf("%q: expected validation error", tc.name)
		}
	}
}

func TestValidateStructErrors(t *testing.T) {
	if err := rule.ValidateStruct(lookupForm{Name: "jack"}); err != nil {
		t.Fatalf("expected valid form, got %v", err)
	}

	err := rule.ValidateStruct(lookupForm{Name: "has-dash"})
	if err == nil {
		t.Fatal("expected error for invalid screen name")
	}

	errs := rule.Errors(err)
	if errs["lookupForm.Name"] != rule.ScreenNameTag {
		t.Fatalf("unexpected errors map: %v", errs)
	}

	if rule.Errors(nil) != nil {
		t.Fatal("Errors(nil) should be nil")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := configs.Defaults()
	if err := rule.ValidateStruct(cfg); err != nil {
		t.Fatalf("default config should validate: %v", rule.Errors(err))
	}
}

// TestRegisterValidation 测试注册自定义验证.
func TestRegisterValidation(t *testing.T) {
	err := rule.RegisterValidation("even_length", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String())%2 == 0
	})
	if err != nil {
		t.Fatalf("Failed to register validation: %v", err)
	}

	if err := rule.ValidateVar("test", "even_length"); err != nil {
		t.Errorf("Expected no error for even length string, got %v", err)
	}

	if err := rule.ValidateVar("test1", "even_length"); err == nil {
		t.Error("Expected error for odd length string, got nil")
	}
}
