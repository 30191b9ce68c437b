package agp_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tidepool-org/blip/agp"
)

var _ = Describe("Machine", func() {
	var machine *agp.Machine

	BeforeEach(func() {
		var err error
		machine, err = agp.NewMachine()
		Expect(err).ToNot(HaveOccurred())
	})

	It("starts initialized", func() {
		Expect(machine.State()).To(Equal(agp.StateInitialized))
		Expect(machine.PatientId()).To(BeEmpty())
	})

	It("walks the happy path", func() {
		Expect(machine.LoadPatient("patient-a")).To(Succeed())
		Expect(machine.Fire("patient-a", agp.TriggerProcessData)).To(Succeed())
		Expect(machine.Fire("patient-a", agp.TriggerGenerateImages)).To(Succeed())
		Expect(machine.State()).To(Equal(agp.StateImagesGenerated))
		Expect(machine.History()).To(Equal([]agp.State{
			agp.StateInitialized,
			agp.StatePatientLoaded,
			agp.StateDataProcessed,
			agp.StateImagesGenerated,
		}))
	})

	DescribeTable("terminal data states",
		func(trigger agp.Trigger, expected agp.State) {
			Expect(machine.LoadPatient("patient-a")).To(Succeed())
			Expect(machine.Fire("patient-a", trigger)).To(Succeed())
			Expect(machine.State()).To(Equal(expected))
			Expect(machine.Can(agp.TriggerGenerateImages)).To(BeFalse())
		},
		Entry("no data", agp.TriggerFindNoData, agp.StateNoPatientData),
		Entry("insufficient data", agp.TriggerFindInsufficientData, agp.StateInsufficientData),
	)

	It("rejects undefined transitions", func() {
		Expect(machine.LoadPatient("patient-a")).To(Succeed())
		err := machine.Fire("patient-a", agp.TriggerGenerateImages)
		Expect(errors.Is(err, agp.ErrInvalidTransition)).To(BeTrue())
		Expect(machine.State()).To(Equal(agp.StatePatientLoaded))
	})

	It("requires clearing before loading another patient", func() {
		Expect(machine.LoadPatient("patient-a")).To(Succeed())
		Expect(errors.Is(machine.LoadPatient("patient-b"), agp.ErrInvalidTransition)).To(BeTrue())

		machine.Clear()
		Expect(machine.State()).To(Equal(agp.StateCleared))
		Expect(machine.LoadPatient("patient-b")).To(Succeed())
		Expect(machine.IsActive("patient-b")).To(BeTrue())
		Expect(machine.IsActive("patient-a")).To(BeFalse())
	})

	It("can be cleared from every state", func() {
		Expect(machine.LoadPatient("patient-a")).To(Succeed())
		Expect(machine.Fire("patient-a", agp.TriggerFindNoData)).To(Succeed())
		machine.Clear()
		machine.Clear()
		Expect(machine.State()).To(Equal(agp.StateCleared))
		Expect(machine.PatientId()).To(BeEmpty())
	})

	It("rejects triggers for inactive patients", func() {
		Expect(machine.LoadPatient("patient-a")).To(Succeed())
		err := machine.Fire("patient-b", agp.TriggerProcessData)
		Expect(errors.Is(err, agp.ErrStalePatient)).To(BeTrue())
		Expect(machine.State()).To(Equal(agp.StatePatientLoaded))
	})
})
