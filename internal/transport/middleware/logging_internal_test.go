package middleware

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("sensitive data filtering", func() {
	It("should mask sensitive JSON keys at any depth", func() {
		out := filterSensitiveBody([]byte(`{"pricingConfigId":42,"customerEmail":"ada@example.org","nested":{"api_key":"x"}}`))

		Expect(out).To(ContainSubstring(`"pricingConfigId":42`))
		Expect(out).To(ContainSubstring(`"customerEmail":"[FILTERED]"`))
		Expect(out).To(ContainSubstring(`"api_key":"[FILTERED]"`))
		Expect(out).NotTo(ContainSubstring("ada@example.org"))
	})

	It("should mask signature and authorization headers", func() {
		h := http.Header{}
		h.Set("Stripe-Signature", "t=1,v1=abc")
		h.Set("Authorization", "Bearer x")
		h.Set("Content-Type", "application/json")

		out := filterSensitiveHeaders(h)

		Expect(out["Stripe-Signature"]).To(Equal("[FILTERED]"))
		Expect(out["Authorization"]).To(Equal("[FILTERED]"))
		Expect(out["Content-Type"]).To(Equal("application/json"))
	})

	It("should keep session ids visible", func() {
		Expect(filterSensitiveBody([]byte(`{"sessionId":"cs_test_1"}`))).To(ContainSubstring("cs_test_1"))
	})
})
