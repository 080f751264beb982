package dns

import (
	"github.com/BigDEM0N/net-work-lab/log"
	"github.com/miekg/dns"
	"go.uber.org/zap"
)

type staticDNS struct {
	records *records
	ttl     uint32
}

func newStaticDNS(r *records, ttl uint32) *staticDNS {
	return &staticDNS{records: r, ttl: ttl}
}

func (h *staticDNS) ServeDNS(w dns.ResponseWriter, r *dns.Msg) {
	m := new(dns.Msg)
	m.SetReply(r)
	m.Authoritative = true
	m.Compress = true

	switch {
	case r.Opcode != dns.OpcodeQuery:
		m.Rcode = dns.RcodeNotImplemented
	case len(r.Question) != 1:
		m.Rcode = dns.RcodeFormatError
	default:
		h.answer(m, r.Question[0])
	}

	if err := w.WriteMsg(m); err != nil {
		log.Error("[DNS] failed to send reply", zap.Error(err))
		return
	}
	log.Debug("[DNS] answered",
		zap.Stringer("client", w.RemoteAddr()),
		zap.String("rcode", dns.RcodeToString[m.Rcode]),
		zap.Int("answers", len(m.Answer)))
}

func (h *staticDNS) answer(m *dns.Msg, q dns.Question) {
	if q.Qclass != dns.ClassINET && q.Qclass != dns.ClassANY {
		m.Rcode = dns.RcodeRefused
		return
	}

	if q.Qtype == dns.TypePTR {
		domain, ok := h.records.GetDomainByReverse(q.Name)
		if !ok {
			m.Rcode = dns.RcodeNameError
			return
		}
		m.Answer = append(m.Answer, &dns.PTR{
			Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypePTR, Class: dns.ClassINET, Ttl: h.ttl},
			Ptr: domain,
		})
		return
	}

	ips, ok := h.records.GetIPByDomain(q.Name)
	if !ok {
		m.Rcode = dns.RcodeNameError
		return
	}
	if q.Qtype != dns.TypeA && q.Qtype != dns.TypeANY {
		// name exists, no data of this type
		return
	}
	for _, ip := range ips {
		m.Answer = append(m.Answer, &dns.A{
			Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: h.ttl},
			A:   ip.AsSlice(),
		})
	}
}
